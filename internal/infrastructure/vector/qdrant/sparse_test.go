package qdrant

import "testing"

func TestEncodeSparseQueryDeterministic(t *testing.T) {
	a := encodeSparseQuery("kubernetes ingress setup")
	b := encodeSparseQuery("kubernetes ingress setup")

	if len(a.Indices) == 0 {
		t.Fatalf("expected non-empty sparse vector")
	}
	if len(a.Indices) != len(b.Indices) || len(a.Values) != len(b.Values) {
		t.Fatalf("encoding must be deterministic")
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] || a.Values[i] != b.Values[i] {
			t.Fatalf("encoding must be deterministic at term %d", i)
		}
	}
	for i := 1; i < len(a.Indices); i++ {
		if a.Indices[i] <= a.Indices[i-1] {
			t.Fatalf("indices must be strictly increasing")
		}
	}
}

func TestEncodeSparseQueryEmpty(t *testing.T) {
	v := encodeSparseQuery("!!! --- ???")
	if len(v.Indices) != 0 || len(v.Values) != 0 {
		t.Fatalf("punctuation-only query must encode empty, got %d terms", len(v.Indices))
	}
}

func TestEncodeSparseQueryHandlesHan(t *testing.T) {
	v := encodeSparseQuery("检索 策略")
	if len(v.Indices) == 0 {
		t.Fatalf("han tokens must contribute sparse terms")
	}
}

func TestTermSaturation(t *testing.T) {
	once := encodeSparseQuery("token")
	many := encodeSparseQuery("token token token token token token")
	if len(once.Values) != 1 || len(many.Values) != 1 {
		t.Fatalf("expected single-term vectors")
	}
	if many.Values[0] <= once.Values[0] {
		t.Fatalf("repeated term must weigh more")
	}
	if many.Values[0] >= float32(queryBM25K+1.0) {
		t.Fatalf("term weight must saturate below k+1")
	}
}
