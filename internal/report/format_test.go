package report

import (
	"strings"
	"testing"
	"time"
)

var generatedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestFormatHeaderBlock(t *testing.T) {
	doc := Format("Deliverability", "prod-east", Data{
		Metrics: map[string]string{"sent": "1200", "bounced": "4"},
	}, generatedAt)

	for _, want := range []string{
		"<h2>Deliverability Report</h2>",
		"<strong>Cluster:</strong> prod-east",
		"Sat, 14 Mar 2026 09:30:00 UTC",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestFormatMetricsSection(t *testing.T) {
	doc := Format("Usage", "staging", Data{
		Metrics: map[string]string{"sent": "10", "delivered": "9", "opened": "3"},
	}, generatedAt)

	for _, want := range []string{
		"<li><strong>sent:</strong> 10</li>",
		"<li><strong>delivered:</strong> 9</li>",
		"<li><strong>opened:</strong> 3</li>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("metrics section missing %q", want)
		}
	}
	if strings.Contains(doc, "<h3>Details</h3>") {
		t.Error("details section rendered with no detail rows")
	}
}

func TestFormatDetailsTable(t *testing.T) {
	doc := Format("Bounce", "prod", Data{
		Metrics: map[string]string{"total": "2"},
		Details: []map[string]string{
			{"domain": "gmail.com", "count": "12"},
			{"domain": "yahoo.com", "count": "5"},
		},
	}, generatedAt)

	// Headers come from the first row's (sorted) key set
	if !strings.Contains(doc, "<tr><th>count</th><th>domain</th></tr>") {
		t.Errorf("unexpected header row:\n%s", doc)
	}
	if !strings.Contains(doc, "<tr><td>12</td><td>gmail.com</td></tr>") {
		t.Errorf("missing first body row:\n%s", doc)
	}
	if !strings.Contains(doc, "<tr><td>5</td><td>yahoo.com</td></tr>") {
		t.Errorf("missing second body row:\n%s", doc)
	}
}

func TestFormatHeterogeneousRowsAllKept(t *testing.T) {
	doc := Format("Audit", "prod", Data{
		Metrics: map[string]string{},
		Details: []map[string]string{
			{"domain": "gmail.com", "count": "12"},
			{"reason": "mailbox full"},
			{"domain": "aol.com", "count": "1", "extra": "x"},
		},
	}, generatedAt)

	// Header from first row only; every row still renders
	if !strings.Contains(doc, "<th>count</th><th>domain</th>") {
		t.Errorf("header not taken from first row:\n%s", doc)
	}
	if got := strings.Count(doc, "<tr>"); got != 4 { // 1 header + 3 body rows
		t.Errorf("expected 4 table rows, got %d:\n%s", got, doc)
	}
	if !strings.Contains(doc, "<td>mailbox full</td>") {
		t.Error("row with differing key set was dropped")
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	data := Data{
		Metrics: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
		Details: []map[string]string{{"x": "1", "y": "2", "z": "3"}},
	}
	first := Format("Weekly", "prod", data, generatedAt)
	for i := 0; i < 10; i++ {
		if got := Format("Weekly", "prod", data, generatedAt); got != first {
			t.Fatal("identical inputs produced different documents")
		}
	}
}
