package main

import (
	"strings"
	"testing"

	"github.com/withObsrvr/ledger-da-client/client"
)

func hash(b byte) client.Hash {
	var h client.Hash
	h[0] = b
	return h
}

func chainRecord(seq uint64, prev, next client.Hash) client.TransitionRecord {
	return client.TransitionRecord{
		Sequence:       seq,
		PrevRoot:       prev,
		NewRoot:        next,
		CelestiaHeight: 100 + seq,
	}
}

func TestAuditRecordsContinuous(t *testing.T) {
	records := []client.TransitionRecord{
		chainRecord(0, hash(0), hash(1)),
		chainRecord(1, hash(1), hash(2)),
		chainRecord(2, hash(2), hash(3)),
	}
	if problems := auditRecords(records); len(problems) != 0 {
		t.Errorf("problems = %v, want none", problems)
	}
}

func TestAuditRecordsOrdersBySequence(t *testing.T) {
	// Height order and sequence order need not agree.
	records := []client.TransitionRecord{
		chainRecord(2, hash(2), hash(3)),
		chainRecord(0, hash(0), hash(1)),
		chainRecord(1, hash(1), hash(2)),
	}
	if problems := auditRecords(records); len(problems) != 0 {
		t.Errorf("problems = %v, want none", problems)
	}
}

func TestAuditRecordsSequenceGap(t *testing.T) {
	records := []client.TransitionRecord{
		chainRecord(0, hash(0), hash(1)),
		chainRecord(3, hash(1), hash(2)),
	}
	problems := auditRecords(records)
	if len(problems) != 1 || !strings.Contains(problems[0], "sequence gap") {
		t.Errorf("problems = %v, want one sequence gap", problems)
	}
}

func TestAuditRecordsRootMismatch(t *testing.T) {
	records := []client.TransitionRecord{
		chainRecord(0, hash(0), hash(1)),
		chainRecord(1, hash(9), hash(2)),
	}
	problems := auditRecords(records)
	if len(problems) != 1 || !strings.Contains(problems[0], "root mismatch") {
		t.Errorf("problems = %v, want one root mismatch", problems)
	}
}

func TestAuditRecordsEmptyAndSingle(t *testing.T) {
	if problems := auditRecords(nil); len(problems) != 0 {
		t.Errorf("problems for empty input = %v", problems)
	}
	single := []client.TransitionRecord{chainRecord(5, hash(4), hash(5))}
	if problems := auditRecords(single); len(problems) != 0 {
		t.Errorf("problems for single record = %v", problems)
	}
}
