package querysql

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DomainStatement prefixes statement fingerprints. The version suffix
// allows the canonical form to change later.
const DomainStatement = "docsql/statement/v1"

// Fingerprint returns a stable identity for the statement: the SHA-256 of
// its canonical form, domain separated.
//
// Two statements have the same fingerprint exactly when their SQL text and
// typed argument lists are equal. Strings are compared byte for byte, so
// composed and decomposed spellings of the same text hash differently, just
// as they match different rows.
func (s Statement) Fingerprint() (string, error) {
	canonical, err := s.canonical()
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainStatement, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the arguments are known to be supported.
func (s Statement) MustFingerprint() string {
	fp, err := s.Fingerprint()
	if err != nil {
		panic(err)
	}
	return fp
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// canonical renders {"args":[...],"sql":"..."} with every argument tagged
// by type, so "1" and 1 never collide.
func (s Statement) canonical() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"args":[`)
	for i, arg := range s.Args {
		if i > 0 {
			buf.WriteByte(',')
		}
		enc, err := canonicalArg(arg)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		buf.Write(enc)
	}
	buf.WriteString(`],"sql":`)
	sql, err := canonicalString(s.SQL)
	if err != nil {
		return nil, err
	}
	buf.Write(sql)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func canonicalArg(v any) ([]byte, error) {
	var tag, body string
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		enc, err := canonicalString(val)
		if err != nil {
			return nil, err
		}
		return enc, nil
	case int64:
		tag, body = "int", strconv.FormatInt(val, 10)
	case int:
		tag, body = "int", strconv.Itoa(val)
	case float64:
		tag, body = "float", strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		tag, body = "bool", strconv.FormatBool(val)
	case uuid.UUID:
		tag, body = "uuid", val.String()
	case time.Time:
		tag, body = "time", val.UTC().Format(time.RFC3339Nano)
	default:
		return nil, fmt.Errorf("unsupported argument type %T", v)
	}
	return []byte(`{"` + tag + `":"` + body + `"}`), nil
}

// canonicalString encodes s as a JSON string without HTML escaping.
func canonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
