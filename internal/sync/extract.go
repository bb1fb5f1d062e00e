package sync

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/medigraph/medigraph/internal/platform/errs"
	"github.com/medigraph/medigraph/internal/platform/source"
)

// Extractor reads bounded batches of rows for one entity type from the
// relational source. Read-only.
type Extractor struct {
	conn source.Conn
}

func NewExtractor(conn source.Conn) *Extractor {
	return &Extractor{conn: conn}
}

// extractQueries maps each entity type to its source view. The row cap is
// applied at the source (LIMIT), not after transfer. Observations are pulled
// in ascending timestamp order; other types carry no ordering.
var extractQueries = map[EntityType]string{
	EntityPatient:    "SELECT PATIENT_ID, FIRST_NAME, LAST_NAME, SEX, ZIP, AGE FROM V_PATIENTS LIMIT %d",
	EntityProvider:   "SELECT PROVIDER_ID, PROVIDER_NAME, SPECIALTY, STATE, ZIP FROM V_PROVIDERS LIMIT %d",
	EntityEncounter:  "SELECT ENC_ID, PATIENT_ID, PROVIDER_NPI, START_TIME, END_TIME FROM V_ENCOUNTERS LIMIT %d",
	EntityCondition:  "SELECT ENC_ID, PATIENT_ID, ICD_CODE, NAME FROM V_CONDITIONS LIMIT %d",
	EntityMedication: "SELECT ENC_ID, PATIENT_ID, RXNORM, NAME FROM V_MEDICATIONS LIMIT %d",
	EntityObservation: "SELECT OBSERVATION_ID, PATIENT_ID, ENCOUNTER_ID, DESCRIPTION, VALUE, UNIT, CATEGORY, CODE, OBS_DATETIME " +
		"FROM OBSERVATIONS WHERE OBSERVATION_ID IS NOT NULL ORDER BY OBS_DATETIME LIMIT %d",
}

var expectedColumns = map[EntityType][]string{
	EntityPatient:     {"PATIENT_ID", "FIRST_NAME", "LAST_NAME", "SEX", "ZIP", "AGE"},
	EntityProvider:    {"PROVIDER_ID", "PROVIDER_NAME", "SPECIALTY", "STATE", "ZIP"},
	EntityEncounter:   {"ENC_ID", "PATIENT_ID", "PROVIDER_NPI", "START_TIME", "END_TIME"},
	EntityCondition:   {"ENC_ID", "PATIENT_ID", "ICD_CODE", "NAME"},
	EntityMedication:  {"ENC_ID", "PATIENT_ID", "RXNORM", "NAME"},
	EntityObservation: {"OBSERVATION_ID", "PATIENT_ID", "ENCOUNTER_ID", "DESCRIPTION", "VALUE", "UNIT", "CATEGORY", "CODE", "OBS_DATETIME"},
}

// Fetch reads up to maxRows rows of one entity type.
func (e *Extractor) Fetch(ctx context.Context, entity EntityType, maxRows int) ([]Row, error) {
	query, ok := extractQueries[entity]
	if !ok {
		return nil, &errs.SourceQueryError{Entity: string(entity), Err: fmt.Errorf("unknown entity type")}
	}

	result, err := e.conn.Select(ctx, fmt.Sprintf(query, maxRows))
	if err != nil {
		if isConnectionLoss(err) {
			return nil, &errs.SourceUnavailable{Err: err}
		}
		return nil, &errs.SourceQueryError{Entity: string(entity), Err: err}
	}

	idx, err := columnIndex(result.Columns, expectedColumns[entity])
	if err != nil {
		return nil, &errs.SourceQueryError{Entity: string(entity), Err: err}
	}

	rows := make([]Row, 0, len(result.Rows))
	for _, raw := range result.Rows {
		rows = append(rows, buildRow(entity, raw, idx))
	}
	return rows, nil
}

// isConnectionLoss distinguishes a dropped source connection from a failing
// query, so mid-run network loss surfaces as the connection-level error
// rather than schema drift.
func isConnectionLoss(err error) bool {
	var netErr net.Error
	return errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr)
}

// columnIndex maps expected column names to their positions,
// case-insensitively (Snowflake reports uppercase, Postgres lowercase).
// A missing column is schema drift.
func columnIndex(got, want []string) (map[string]int, error) {
	byName := make(map[string]int, len(got))
	for i, name := range got {
		byName[strings.ToUpper(name)] = i
	}

	idx := make(map[string]int, len(want))
	var missing []string
	for _, name := range want {
		pos, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx[name] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing expected columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func buildRow(entity EntityType, raw []any, idx map[string]int) Row {
	at := func(col string) any { return raw[idx[col]] }

	switch entity {
	case EntityPatient:
		return PatientRow{
			ID:        asString(at("PATIENT_ID")),
			FirstName: asString(at("FIRST_NAME")),
			LastName:  asString(at("LAST_NAME")),
			Sex:       asString(at("SEX")),
			Zip:       asString(at("ZIP")),
			Age:       asInt64(at("AGE")),
		}
	case EntityProvider:
		return ProviderRow{
			ID:        asString(at("PROVIDER_ID")),
			Name:      asString(at("PROVIDER_NAME")),
			Specialty: asString(at("SPECIALTY")),
			State:     asString(at("STATE")),
			Zip:       asString(at("ZIP")),
		}
	case EntityEncounter:
		return EncounterRow{
			ID:          asString(at("ENC_ID")),
			PatientID:   asString(at("PATIENT_ID")),
			ProviderNPI: asString(at("PROVIDER_NPI")),
			StartTime:   asString(at("START_TIME")),
			EndTime:     asString(at("END_TIME")),
		}
	case EntityCondition:
		return ConditionRow{
			EncounterID: asString(at("ENC_ID")),
			PatientID:   asString(at("PATIENT_ID")),
			Code:        asString(at("ICD_CODE")),
			Name:        asString(at("NAME")),
		}
	case EntityMedication:
		return MedicationRow{
			EncounterID: asString(at("ENC_ID")),
			PatientID:   asString(at("PATIENT_ID")),
			Code:        asString(at("RXNORM")),
			Name:        asString(at("NAME")),
		}
	case EntityObservation:
		return ObservationRow{
			ID:          asString(at("OBSERVATION_ID")),
			PatientID:   asString(at("PATIENT_ID")),
			EncounterID: asString(at("ENCOUNTER_ID")),
			Description: asString(at("DESCRIPTION")),
			Value:       asFloat64(at("VALUE")),
			Unit:        asString(at("UNIT")),
			Category:    asString(at("CATEGORY")),
			Code:        asString(at("CODE")),
			ObservedAt:  asString(at("OBS_DATETIME")),
		}
	default:
		panic(fmt.Sprintf("sync: unknown entity type %q", entity))
	}
}

// asString normalizes source values to strings; nil becomes "".
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(v any) *int64 {
	var n int64
	switch t := v.(type) {
	case nil:
		return nil
	case int64:
		n = t
	case int32:
		n = int64(t)
	case int:
		n = int64(t)
	case float64:
		n = int64(t)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func asFloat64(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
