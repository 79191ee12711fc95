package model

import "testing"

func TestIsValidVerdict(t *testing.T) {
	cases := []struct {
		verdict string
		want    bool
	}{
		{SubmissionStatusSuccess, true},
		{SubmissionStatusFail, true},
		{SubmissionStatusPending, false}, // pending 不是评审结论
		{"", false},
		{"Success", false}, // 状态值区分大小写
		{"approved", false},
	}
	for _, c := range cases {
		if got := IsValidVerdict(c.verdict); got != c.want {
			t.Errorf("IsValidVerdict(%q) = %v, want %v", c.verdict, got, c.want)
		}
	}
}

func TestIsTerminalStatus(t *testing.T) {
	if IsTerminalStatus(SubmissionStatusPending) {
		t.Error("pending should not be terminal")
	}
	if !IsTerminalStatus(SubmissionStatusSuccess) || !IsTerminalStatus(SubmissionStatusFail) {
		t.Error("success/fail should be terminal")
	}
}
