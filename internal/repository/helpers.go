package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/parisxmas/lodgeforms/internal/models"
)

// fieldOrder is the persisted key order of each known collection, the same
// order FileStore writes.
var fieldOrder = map[string][]string{
	BookingsCollection: jsonKeys(models.Booking{}),
	ContactsCollection: jsonKeys(models.Contact{}),
}

func jsonKeys(v any) []string {
	t := reflect.TypeOf(v)
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys = append(keys, name)
		}
	}
	return keys
}

// recordToDoc converts a record into the map form the OxiDB client sends.
func recordToDoc(record any) (map[string]any, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("record is not a JSON object: %w", err)
	}
	delete(doc, "_id")
	return doc, nil
}

// docToRecord drops the server-assigned _id and encodes the document with
// the collection's known fields first, in persisted order. Any other keys
// follow sorted.
func docToRecord(collection string, doc map[string]any) (json.RawMessage, error) {
	delete(doc, "_id")

	keys := make([]string, 0, len(doc))
	known := make(map[string]bool, len(doc))
	for _, k := range fieldOrder[collection] {
		if _, ok := doc[k]; ok {
			keys = append(keys, k)
			known[k] = true
		}
	}
	var rest []string
	for k := range doc {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	keys = append(keys, rest...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		val, err := json.Marshal(doc[k])
		if err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
