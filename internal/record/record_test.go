package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses runs", "Opening   Remarks\n\tKeynote", "Opening Remarks Keynote"},
		{"trims ends", "  Hall A  ", "Hall A"},
		{"empty stays empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestKeyIgnoresCaseAndSpacing(t *testing.T) {
	a := Record{Title: "Keynote  Talk", Time: "9:00 AM - 10:30 AM"}
	b := Record{Title: "keynote talk", Time: "9:00 am - 10:30 am"}
	assert.Equal(t, a.Key(), b.Key())

	c := Record{Title: "Keynote Talk", Time: "11:00 AM - 12:00 PM"}
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestMergeBackfillsOnly(t *testing.T) {
	a := Record{Title: "Keynote", Time: "9:00 AM - 10:30 AM", Location: "Hall A"}
	b := Record{Title: "Keynote", Time: "9:00 AM - 10:30 AM", Location: "Hall B", URL: "https://example.com/s/1"}

	a.Merge(b)
	assert.Equal(t, "Hall A", a.Location, "non-empty field must not be overwritten")
	assert.Equal(t, "https://example.com/s/1", a.URL, "empty field must be backfilled")
}

func TestMergeFieldUnionRegardlessOfOrder(t *testing.T) {
	partial := Record{Title: "Keynote", Time: "9:00 AM - 10:30 AM"}
	full := Record{Title: "Keynote", Time: "9:00 AM - 10:30 AM", Location: "Hall A", URL: "https://example.com/s/1"}

	ab := partial
	ab.Merge(full)
	ba := full
	ba.Merge(partial)

	for _, got := range []Record{ab, ba} {
		assert.Equal(t, "Hall A", got.Location)
		assert.Equal(t, "https://example.com/s/1", got.URL)
	}
}

func TestMergeTagsSortedUnion(t *testing.T) {
	a := Record{Title: "Keynote", Tags: []string{"ml", "graphs"}}
	b := Record{Title: "Keynote", Tags: []string{"applied", "ml"}}
	a.Merge(b)
	assert.Equal(t, []string{"applied", "graphs", "ml"}, a.Tags)
}

func TestAddTagFirstSeenOrder(t *testing.T) {
	r := Record{}
	r.AddTag("ml")
	r.AddTag("graphs")
	r.AddTag("ml")
	assert.Equal(t, []string{"ml", "graphs"}, r.Tags)
}

func TestSetMergeIsIdempotent(t *testing.T) {
	s := NewSet()
	r := Record{Title: "Keynote", Time: "9:00 AM - 10:30 AM", Tags: []string{"ml"}}

	assert.True(t, s.Add(r))
	assert.False(t, s.Add(r))
	assert.False(t, s.Add(r))

	got := s.Records()
	assert.Len(t, got, 1)
	assert.Equal(t, []string{"ml"}, got[0].Tags)
}

func TestSetKeepsFirstSeenOrder(t *testing.T) {
	s := NewSet()
	s.Add(Record{Title: "B Session", Time: "1:00 PM - 2:00 PM"})
	s.Add(Record{Title: "A Session", Time: "9:00 AM - 10:00 AM"})
	s.Add(Record{Title: "B Session", Time: "1:00 PM - 2:00 PM", Location: "Hall C"})

	got := s.Records()
	assert.Len(t, got, 2)
	assert.Equal(t, "B Session", got[0].Title)
	assert.Equal(t, "Hall C", got[0].Location)
	assert.Equal(t, "A Session", got[1].Title)
}

func TestDedupe(t *testing.T) {
	in := []Record{
		{Title: "Keynote", Time: "9:00 AM - 10:30 AM"},
		{Title: "Panel", Time: "2:00 PM - 3:00 PM", Location: "Room 2"},
		{Title: "KEYNOTE", Time: "9:00 am - 10:30 am", URL: "https://example.com/k"},
	}
	out := Dedupe(in)
	assert.Len(t, out, 2)
	assert.Equal(t, "https://example.com/k", out[0].URL)

	again := Dedupe(out)
	assert.Equal(t, out, again, "dedupe must be idempotent")
}

func TestEmpty(t *testing.T) {
	assert.True(t, Record{Tags: []string{"ml"}}.Empty(), "tags alone do not identify a record")
	assert.False(t, Record{Time: "9:00 AM - 10:30 AM"}.Empty())
	assert.True(t, SubRecord{ParentTitle: "Keynote"}.Empty(), "parent fields alone do not identify a sub-record")
	assert.False(t, SubRecord{Title: "Q&A"}.Empty())
}
