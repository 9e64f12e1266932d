// Package fingerprint computes the content digest used to deduplicate
// notifications.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"notification-dispatcher/internal/models"
)

// ApplicationFields and PayStubFields are the fields that define meaningful
// content for each kind. Nothing else feeds the digest.
var (
	ApplicationFields = []string{
		models.FieldStatus,
		models.FieldAdminNotes,
		models.FieldNeedsActionNote,
		models.FieldRejectionReason,
	}
	PayStubFields = []string{
		models.FieldHash,
		models.FieldGeneratedAt,
		models.FieldNetPay,
		models.FieldPayPeriodID,
	}
)

// Compute hashes fields in key order, prefixed by the kind.
func Compute(kind models.Kind, fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(string(kind))
	buf.WriteByte('\n')
	for _, k := range keys {
		buf.WriteString(canonical(k))
		buf.WriteByte(':')
		buf.WriteString(canonical(fields[k]))
		buf.WriteByte('\n')
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Fields selects and normalizes the fingerprint fields of a record.
func Fields(kind models.Kind, r *models.Record) map[string]interface{} {
	switch kind {
	case models.KindApplication:
		out := map[string]interface{}{
			models.FieldStatus: string(models.NormalizeStatus(r.String(models.FieldStatus))),
		}
		for _, name := range ApplicationFields[1:] {
			if v := r.Text(name); v != nil {
				out[name] = *v
			} else {
				out[name] = nil
			}
		}
		return out
	case models.KindPayStub:
		out := make(map[string]interface{}, len(PayStubFields))
		for _, name := range PayStubFields {
			out[name] = r.Value(name)
		}
		return out
	default:
		return map[string]interface{}{}
	}
}

// ForRecord is Compute over Fields.
func ForRecord(kind models.Kind, r *models.Record) string {
	return Compute(kind, Fields(kind, r))
}

// canonical encodes v as JSON. encoding/json sorts map keys, so nested
// objects are stable as well.
func canonical(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}
