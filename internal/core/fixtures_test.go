package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// peopleSchema is a small schema covering every field type.
func peopleSchema() *Schema {
	return &Schema{
		Key:     "people",
		Label:   "People",
		Table:   "people",
		Version: "test",
		Fields: []FieldSpec{
			{Name: "email", Label: "Email", Type: FieldEmail, Aliases: []string{"email", "e-mail"}},
			{Name: "company", Label: "Company", Type: FieldText, Aliases: []string{"empresa", "company"}},
			{Name: "full_name", Label: "Name", Type: FieldText, Required: true, Aliases: []string{"nome", "name"}},
			{
				Name:        "kind",
				Label:       "Kind",
				Type:        FieldEnum,
				Aliases:     []string{"tipo", "kind"},
				EnumValues:  []string{"lead", "client"},
				EnumAliases: map[string]string{"cliente": "client", "contacto": "lead"},
			},
			{Name: "budget", Label: "Budget", Type: FieldNumber, Aliases: []string{"orçamento", "budget"}},
			{Name: "tags", Label: "Tags", Type: FieldList, Aliases: []string{"tag"}},
		},
		NaturalKey:     "email",
		Classification: []string{"kind"},
	}
}

var registerPeople sync.Once

// registeredPeople registers peopleSchema once for tests that go through the
// registry.
func registeredPeople() *Schema {
	registerPeople.Do(func() {
		Register(peopleSchema())
	})
	s, _ := Get("people")
	return s
}

func table(headers []string, rows ...[]string) RawTable {
	t := RawTable{Headers: headers}
	for _, cells := range rows {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func rec(kv ...string) CandidateRecord {
	r := make(CandidateRecord)
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i]] = TextValue(kv[i+1])
	}
	return r
}

// fakeStore records calls and can be told to fail.
type fakeStore struct {
	mu        sync.Mutex
	existing  []Record
	listErr   error
	createErr error
	listCalls int
	creates   [][]CandidateRecord
}

func (f *fakeStore) List(ctx context.Context, s *Schema) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.existing, nil
}

func (f *fakeStore) CreateMany(ctx context.Context, s *Schema, records []CandidateRecord) ([]CreatedRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, records)
	if f.createErr != nil {
		return nil, f.createErr
	}
	out := make([]CreatedRecord, len(records))
	for i, r := range records {
		out[i] = CreatedRecord{ID: fmt.Sprintf("id-%d", i+1), Fields: r.Fields(), CreatedAt: time.Unix(0, 0)}
		f.existing = append(f.existing, Record(r.Fields()))
	}
	return out, nil
}

func (f *fakeStore) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}
