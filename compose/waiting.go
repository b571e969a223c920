package compose

import (
	_ "embed"
	"strings"
)

//go:embed waiting_messages.txt
var waitingMessagesFile string

var waitingMessages = loadWaitingMessages(waitingMessagesFile)

func loadWaitingMessages(raw string) []string {
	seen := make(map[string]bool)
	var msgs []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		msgs = append(msgs, line)
	}
	if len(msgs) == 0 {
		return []string{"Думаю…", "Секундочку…"}
	}
	return msgs
}

// WaitingMessage returns a random short phrase to show while a slow
// answer is being prepared.
func (c *Composer) WaitingMessage() string {
	return c.pick(waitingMessages)
}
