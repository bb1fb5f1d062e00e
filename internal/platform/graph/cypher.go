package graph

import "fmt"

// renderOp turns a merge operation into a Cypher statement plus parameters.
// Labels, key names, and relationship types are trusted vocabulary
// constants; all values travel as query parameters.
func renderOp(op Op) (string, map[string]any) {
	switch o := op.(type) {
	case NodeMerge:
		if len(o.Props) == 0 {
			cypher := fmt.Sprintf("MERGE (n:%s {%s: $key})", o.Ref.Label, o.Ref.Key)
			return cypher, map[string]any{"key": o.Ref.Value}
		}
		cypher := fmt.Sprintf("MERGE (n:%s {%s: $key}) SET n += $props", o.Ref.Label, o.Ref.Key)
		return cypher, map[string]any{"key": o.Ref.Value, "props": o.Props}
	case EdgeMerge:
		params := map[string]any{"from": o.From.Value, "to": o.To.Value}
		if len(o.Props) == 0 {
			cypher := fmt.Sprintf(
				"MATCH (a:%s {%s: $from}) MATCH (b:%s {%s: $to}) MERGE (a)-[:%s]->(b)",
				o.From.Label, o.From.Key, o.To.Label, o.To.Key, o.Type,
			)
			return cypher, params
		}
		cypher := fmt.Sprintf(
			"MATCH (a:%s {%s: $from}) MATCH (b:%s {%s: $to}) MERGE (a)-[r:%s]->(b) SET r += $props",
			o.From.Label, o.From.Key, o.To.Label, o.To.Key, o.Type,
		)
		params["props"] = o.Props
		return cypher, params
	default:
		panic(fmt.Sprintf("graph: unknown op type %T", op))
	}
}
