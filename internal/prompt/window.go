// Package prompt builds token-budget-aware generation prompts from memory,
// the session summary, and a partitioned transcript window.
package prompt

import "github.com/membot/membot/internal/history"

// Partition splits a transcript into the recent window (sent verbatim) and
// the summary window (the messages immediately preceding it, sent only as a
// digestion request). Windows never overlap; a transcript shorter than
// recentN has an empty summary window. Whether the summary window is
// actually used is the caller's decision, not the partitioner's.
func Partition(msgs []history.Message, recentN, summaryN int) (recent, summaryWindow []history.Message) {
	if recentN < 1 {
		recentN = 1
	}
	if summaryN < 0 {
		summaryN = 0
	}

	recentStart := len(msgs) - recentN
	if recentStart < 0 {
		recentStart = 0
	}
	summaryStart := recentStart - summaryN
	if summaryStart < 0 {
		summaryStart = 0
	}

	return msgs[recentStart:], msgs[summaryStart:recentStart]
}
