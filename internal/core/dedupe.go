package core

import "fmt"

// KeySet holds normalized natural keys of records that already exist.
type KeySet map[string]struct{}

// Contains reports whether key (in any case or padding) is in the set.
func (k KeySet) Contains(key string) bool {
	_, ok := k[NormalizeKey(key)]
	return ok
}

// BuildKeySet collects the natural keys of existing records. Records with no
// key value are skipped.
func BuildKeySet(existing []Record, s *Schema) KeySet {
	keys := make(KeySet, len(existing))
	if s.NaturalKey == "" {
		return keys
	}
	for _, rec := range existing {
		v, ok := rec[s.NaturalKey]
		if !ok || v == nil {
			continue
		}
		if k := NormalizeKey(fmt.Sprint(v)); k != "" {
			keys[k] = struct{}{}
		}
	}
	return keys
}

// DedupResult splits valid records into those to create and those skipped as
// duplicates.
type DedupResult struct {
	ToCreate []CandidateRecord `json:"toCreate"`

	// DuplicateCount includes records matching existing data and repeats of
	// a key earlier in the same file.
	DuplicateCount int `json:"duplicateCount"`
	InFileCount    int `json:"inFileCount"`
}

// Dedupe drops records whose natural key is already stored or appeared
// earlier in valid. Records without a key value are always kept. The input
// KeySet is not modified.
func Dedupe(valid []CandidateRecord, existing KeySet, s *Schema) DedupResult {
	res := DedupResult{ToCreate: make([]CandidateRecord, 0, len(valid))}
	if s.NaturalKey == "" {
		res.ToCreate = append(res.ToCreate, valid...)
		return res
	}

	seen := make(map[string]struct{})
	for _, rec := range valid {
		key := NormalizeKey(rec.Text(s.NaturalKey))
		if key == "" {
			res.ToCreate = append(res.ToCreate, rec)
			continue
		}
		if existing.Contains(key) {
			res.DuplicateCount++
			continue
		}
		if _, ok := seen[key]; ok {
			res.DuplicateCount++
			res.InFileCount++
			continue
		}
		seen[key] = struct{}{}
		res.ToCreate = append(res.ToCreate, rec)
	}
	return res
}
