package memory

import (
	"strings"

	"github.com/nolavoice/nola-core/core/llms"
)

// interruptedMarker is appended to interrupted assistant text in prompt
// context so the model can tell the response was cut off mid-delivery.
const interruptedMarker = " (interrupted)"

// Messages converts the committed records into provider-facing conversation
// history in turn order. Interrupted assistant records carry a trailing
// marker distinguishing them from responses the user heard in full.
func (l *Ledger) Messages() []llms.Message {
	records := l.Records()

	messages := make([]llms.Message, 0, len(records))
	for _, record := range records {
		content := record.Text
		if record.Role == RoleAssistant && record.Tag == TagInterrupted {
			content += interruptedMarker
		}
		messages = append(messages, llms.Message{
			Role:    toMessageRole(record.Role),
			Content: content,
		})
	}
	return messages
}

// MessagesBefore converts the records committed before the given turn into
// provider-facing conversation history. The in-flight turn's own records are
// excluded so its trigger text is not repeated behind the prompt.
func (l *Ledger) MessagesBefore(turnID int64) []llms.Message {
	records := l.Records()

	messages := make([]llms.Message, 0, len(records))
	for _, record := range records {
		if record.TurnID >= turnID {
			continue
		}
		content := record.Text
		if record.Role == RoleAssistant && record.Tag == TagInterrupted {
			content += interruptedMarker
		}
		messages = append(messages, llms.Message{
			Role:    toMessageRole(record.Role),
			Content: content,
		})
	}
	return messages
}

func toMessageRole(role Role) llms.MessageRole {
	if role == RoleAssistant {
		return llms.MessageRoleAssistant
	}
	return llms.MessageRoleUser
}

// Recent returns up to count of the newest records, oldest first.
func (l *Ledger) Recent(count int) []Record {
	records := l.Records()
	if count <= 0 || count >= len(records) {
		return records
	}
	return records[len(records)-count:]
}

// Search returns records whose text contains the query, case-insensitively.
func (l *Ledger) Search(query string) []Record {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var matches []Record
	for _, record := range l.Records() {
		if strings.Contains(strings.ToLower(record.Text), query) {
			matches = append(matches, record)
		}
	}
	return matches
}

// Stats summarizes the ledger contents.
type Stats struct {
	Records     int
	Turns       int
	Interrupted int
}

// Stats returns a summary of the committed records.
func (l *Ledger) Stats() Stats {
	records := l.Records()

	stats := Stats{Records: len(records)}
	turns := map[int64]struct{}{}
	for _, record := range records {
		turns[record.TurnID] = struct{}{}
		if record.Tag == TagInterrupted {
			stats.Interrupted++
		}
	}
	stats.Turns = len(turns)
	return stats
}
