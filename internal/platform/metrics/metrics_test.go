package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestVotingCountersAreGathered(t *testing.T) {
	m, err := NewVoting()
	if err != nil {
		t.Fatalf("new metrics failed: %v", err)
	}

	m.ObserveTransition("RegisteringVoters", "ProposalsRegistrationStarted")
	m.ObserveEvent("Voted")
	m.ObserveEvent("Voted")
	m.ObserveRevert("vote_cast", "duplicate_action")
	m.ObserveOutboxPublished(3)
	m.ObserveOutboxPublished(0)
	m.ObserveRequest("POST /v1/elections/{election_id}/votes", 200, 15*time.Millisecond)

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}

	if got := counterSum(byName["civitas_voting_events_total"]); got != 2 {
		t.Fatalf("expected 2 voting events, got %v", got)
	}
	if got := counterSum(byName["civitas_workflow_transitions_total"]); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := counterSum(byName["civitas_voting_reverts_total"]); got != 1 {
		t.Fatalf("expected 1 revert, got %v", got)
	}
	if got := counterSum(byName["civitas_outbox_published_total"]); got != 3 {
		t.Fatalf("expected 3 published rows, got %v", got)
	}
	requests := byName["civitas_http_request_duration_seconds"]
	if requests == nil || len(requests.GetMetric()) != 1 {
		t.Fatalf("expected one request series")
	}
	if requests.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one request sample")
	}
}

func counterSum(family *dto.MetricFamily) float64 {
	if family == nil {
		return 0
	}
	total := 0.0
	for _, metric := range family.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	return total
}
