package record

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// Hash field names. The leading __ marks the vector payload, which is
// never returned to callers.
const (
	fieldQuery       = "query"
	fieldQueryNorm   = "query_norm"
	fieldTenantID    = "tenant_id"
	fieldUserID      = "user_id"
	fieldTS          = "ts"
	fieldResultCount = "result_count"
	fieldSources     = "sources"
	fieldClickCount  = "click_count"
	fieldClicked     = "clicked"
	fieldMeta        = "meta"
	fieldVector      = "__vector"
)

// clickedSep joins clicked result ids inside a single hash field.
// Unit separator: never appears in result ids.
const clickedSep = "\x1f"

const sourcesSep = ","

// buildHashFields maps a record to its stored hash representation.
func buildHashFields(rec *domrec.Record) (map[string]string, error) {
	fields := map[string]string{
		fieldQuery:       rec.QueryText(),
		fieldQueryNorm:   rec.NormalizedText(),
		fieldTenantID:    rec.TenantID(),
		fieldUserID:      rec.UserID(),
		fieldTS:          strconv.FormatInt(rec.Timestamp().UnixMilli(), 10),
		fieldResultCount: strconv.Itoa(rec.ResultCount()),
		fieldSources:     strings.Join(rec.Sources(), sourcesSep),
		fieldClickCount:  strconv.FormatInt(rec.ClickCount(), 10),
		fieldClicked:     strings.Join(rec.ClickedResultIDs(), clickedSep),
		fieldVector:      string(vectorToBytes(rec.Embedding())),
	}

	if meta := rec.Metadata(); len(meta) > 0 {
		data, err := json.Marshal(meta)
		if err != nil {
			return nil, err
		}
		fields[fieldMeta] = string(data)
	}

	return fields, nil
}

// parseHashFields hydrates a record from stored hash fields.
// Malformed numeric fields parse as zero rather than failing the read.
func parseHashFields(id string, h map[string]string) domrec.Record {
	ts, _ := strconv.ParseInt(h[fieldTS], 10, 64)
	resultCount, _ := strconv.Atoi(h[fieldResultCount])
	clickCount, _ := strconv.ParseInt(h[fieldClickCount], 10, 64)

	var sources []string
	if s := h[fieldSources]; s != "" {
		sources = strings.Split(s, sourcesSep)
	}
	var clicked []string
	if s := h[fieldClicked]; s != "" {
		clicked = strings.Split(s, clickedSep)
	}

	var meta map[string]any
	if s := h[fieldMeta]; s != "" {
		_ = json.Unmarshal([]byte(s), &meta)
	}

	return domrec.Reconstruct(
		id, h[fieldQuery], bytesToVector(h[fieldVector]),
		h[fieldTenantID], h[fieldUserID],
		time.UnixMilli(ts).UTC(), resultCount, sources,
		clickCount, clicked, meta,
	)
}

func vectorToBytes(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func bytesToVector(s string) []float32 {
	if s == "" || len(s)%4 != 0 {
		return nil
	}
	b := []byte(s)
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
