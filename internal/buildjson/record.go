package buildjson

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Document is a decompressed buildjson file. Only the "builds" collection is
// kept; its entries are decoded into JobRecord values by the ShardCache.
type Document struct {
	Builds []json.RawMessage `json:"builds"`
}

// JobRecord is one finished (or, in the 4hr file, recently finished) job as
// published by the buildjson producer. Records are owned by the Shard that
// loaded them and must not be modified.
type JobRecord struct {
	ID          int64      `json:"id"`
	BuilderID   int64      `json:"builder_id"`
	BuildNumber int64      `json:"buildnumber"`
	MasterID    int64      `json:"master_id"`
	SlaveID     int64      `json:"slave_id"`
	StartTime   int64      `json:"starttime"`
	EndTime     int64      `json:"endtime"`
	RequestTime int64      `json:"requesttime"`
	Reason      string     `json:"reason,omitempty"`
	Result      int        `json:"result"`
	RequestIDs  []int64    `json:"request_ids"`
	Properties  Properties `json:"properties"`
}

// HasRequestID reports whether id is one of the record's scheduling ids.
// Both the top-level request_ids and properties.request_ids are consulted;
// upstream does not keep the two lists in sync.
func (r *JobRecord) HasRequestID(id int64) bool {
	for _, v := range r.RequestIDs {
		if v == id {
			return true
		}
	}
	for _, v := range r.Properties.RequestIDs {
		if v == id {
			return true
		}
	}
	return false
}

// AllRequestIDs returns the sorted, de-duplicated union of both request id
// lists.
func (r *JobRecord) AllRequestIDs() []int64 {
	n := len(r.RequestIDs) + len(r.Properties.RequestIDs)
	seen := make(map[int64]struct{}, n)
	ids := make([]int64, 0, n)
	for _, list := range [][]int64{r.RequestIDs, r.Properties.RequestIDs} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			ids = append(ids, v)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Properties holds the buildbot properties of a job. The fields mozci relies
// on are typed; everything else lands in Extra untouched. Marshalling a
// decoded value writes the typed fields back in their published form.
type Properties struct {
	BuilderName  string
	BuildID      string
	Revision     string
	RepoPath     string
	RequestIDs   []int64
	SlaveName    string
	LogURL       string
	PackageURL   string
	SymbolsURL   string
	TestsURL     string
	BlobberFiles json.RawMessage

	Extra map[string]json.RawMessage

	// raw keeps the published value of each typed field
	raw map[string]json.RawMessage
}

// propertyFields maps the wire names of the typed properties to their fields.
func (p *Properties) propertyFields() map[string]*string {
	return map[string]*string{
		"buildername":   &p.BuilderName,
		"buildid":       &p.BuildID,
		"revision":      &p.Revision,
		"repo_path":     &p.RepoPath,
		"slavename":     &p.SlaveName,
		"log_url":       &p.LogURL,
		"packageUrl":    &p.PackageURL,
		"symbolsUrl":    &p.SymbolsURL,
		"testsUrl":      &p.TestsURL,
	}
}

// UnmarshalJSON decodes the open properties mapping.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Properties{}
	fields := p.propertyFields()
	for key, value := range raw {
		if dst, ok := fields[key]; ok {
			*dst = looseString(value)
			if p.raw == nil {
				p.raw = make(map[string]json.RawMessage, len(fields))
			}
			p.raw[key] = value
			continue
		}
		if key == "blobber_files" {
			if !isNull(value) {
				p.BlobberFiles = value
			}
			continue
		}
		if key == "request_ids" {
			if isNull(value) {
				continue
			}
			if err := json.Unmarshal(value, &p.RequestIDs); err != nil {
				return err
			}
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[key] = value
	}
	return nil
}

// MarshalJSON writes the typed properties back next to the Extra bag.
func (p Properties) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Extra)+11)
	for key, value := range p.Extra {
		out[key] = value
	}
	for key, value := range p.propertyFields() {
		if raw, ok := p.raw[key]; ok && looseString(raw) == *value {
			out[key] = raw
			continue
		}
		if *value != "" {
			out[key] = *value
		}
	}
	if len(p.BlobberFiles) > 0 {
		out["blobber_files"] = p.BlobberFiles
	}
	if p.RequestIDs != nil {
		out["request_ids"] = p.RequestIDs
	}
	return json.Marshal(out)
}

// looseString accepts JSON strings as well as bare numbers or booleans, since
// some buildbot masters publish buildid as a number.
func looseString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
