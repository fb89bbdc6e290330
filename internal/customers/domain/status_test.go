package domain

import "testing"

func TestDecideStatus(t *testing.T) {
	tests := []struct {
		name       string
		current    Status
		outcome    CallOutcome
		want       Status
		recognized bool
	}{
		{"successful call marks contacted", StatusCalling, CallOutcome{Successful: true}, StatusContacted, true},
		{"successful call keeps booked", StatusBooked, CallOutcome{Successful: true}, StatusBooked, true},
		{"user hangup is still contact", StatusCalling, CallOutcome{false, "user_hangup"}, StatusContacted, true},
		{"agent hangup is still contact", StatusCalling, CallOutcome{false, "agent_hangup"}, StatusContacted, true},
		{"call failed", StatusCalling, CallOutcome{false, "call_failed"}, StatusFailed, true},
		{"invalid phone", StatusCalling, CallOutcome{false, "invalid_phone_number"}, StatusFailed, true},
		{"not answered", StatusCalling, CallOutcome{false, "user_not_answered"}, StatusNoAnswer, true},
		{"no answer", StatusCalling, CallOutcome{false, "no_answer"}, StatusNoAnswer, true},
		{"busy", StatusCalling, CallOutcome{false, "user_busy"}, StatusNoAnswer, true},
		{"reason is case-insensitive", StatusCalling, CallOutcome{false, "USER_HANGUP"}, StatusContacted, true},
		{"reason is trimmed", StatusCalling, CallOutcome{false, " no_answer "}, StatusNoAnswer, true},
		{"unknown reason defaults to failed", StatusCalling, CallOutcome{false, "voicemail_reached"}, StatusFailed, false},
		{"empty reason defaults to failed", StatusCalling, CallOutcome{false, ""}, StatusFailed, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, recognized := DecideStatus(tc.current, tc.outcome)
			if got != tc.want || recognized != tc.recognized {
				t.Errorf("DecideStatus(%v, %+v) = (%v, %v), want (%v, %v)",
					tc.current, tc.outcome, got, recognized, tc.want, tc.recognized)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusNew:       "New",
		StatusCalling:   "Calling",
		StatusBooked:    "Booked",
		StatusFailed:    "Failed",
		StatusContacted: "Contacted",
		StatusNoAnswer:  "NoAnswer",
		Status(42):      "Unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	if !StatusNoAnswer.Valid() {
		t.Error("StatusNoAnswer should be valid")
	}
	if Status(-1).Valid() || Status(6).Valid() {
		t.Error("out-of-range statuses should be invalid")
	}
}
