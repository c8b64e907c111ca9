package prompt

import (
	"fmt"
	"testing"

	"github.com/membot/membot/internal/history"
)

func transcript(n int) []history.Message {
	msgs := make([]history.Message, n)
	for i := range msgs {
		role := history.RoleUser
		if i%2 == 1 {
			role = history.RoleAssistant
		}
		msgs[i] = history.Message{Role: role, Content: fmt.Sprintf("msg-%d", i+1)}
	}
	return msgs
}

func TestPartition_Boundaries(t *testing.T) {
	msgs := transcript(10)

	recent, window := Partition(msgs, 4, 3)

	if len(recent) != 4 || recent[0].Content != "msg-7" || recent[3].Content != "msg-10" {
		t.Errorf("recent = %v", contents(recent))
	}
	if len(window) != 3 || window[0].Content != "msg-4" || window[2].Content != "msg-6" {
		t.Errorf("summary window = %v", contents(window))
	}
}

func TestPartition_RecentLargerThanTranscript(t *testing.T) {
	msgs := transcript(10)

	recent, window := Partition(msgs, 20, 3)

	if len(recent) != 10 {
		t.Errorf("recent = %d messages, want all 10", len(recent))
	}
	if len(window) != 0 {
		t.Errorf("summary window = %v, want empty", contents(window))
	}
}

func TestPartition_WindowsAreDisjoint(t *testing.T) {
	for _, tc := range []struct{ n, recentN, summaryN int }{
		{0, 4, 3}, {1, 4, 3}, {5, 4, 3}, {7, 4, 3}, {50, 4, 3},
		{10, 1, 0}, {10, 10, 10}, {3, 2, 5},
	} {
		msgs := transcript(tc.n)
		recent, window := Partition(msgs, tc.recentN, tc.summaryN)

		seen := map[string]bool{}
		for _, m := range append(append([]history.Message{}, window...), recent...) {
			if seen[m.Content] {
				t.Fatalf("n=%d recentN=%d summaryN=%d: %q in both windows", tc.n, tc.recentN, tc.summaryN, m.Content)
			}
			seen[m.Content] = true
		}
		if len(recent)+len(window) > tc.n {
			t.Fatalf("n=%d: windows cover %d messages", tc.n, len(recent)+len(window))
		}
	}
}

func TestPartition_ClampsBadSizes(t *testing.T) {
	msgs := transcript(5)

	recent, window := Partition(msgs, 0, -2)
	if len(recent) != 1 || recent[0].Content != "msg-5" {
		t.Errorf("recent = %v", contents(recent))
	}
	if len(window) != 0 {
		t.Errorf("window = %v", contents(window))
	}
}

func contents(msgs []history.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
