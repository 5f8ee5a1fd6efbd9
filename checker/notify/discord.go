package notify

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/screwyprof/stakecheck/checker"
)

// DiscordMessageLimit is the maximum message length Discord accepts, in characters
const DiscordMessageLimit = 2000

type discordPayload struct {
	Content string `json:"content"`
}

// DiscordNotifier posts the rendered snapshot to a Discord webhook,
// split across as many messages as the length limit requires
type DiscordNotifier struct {
	client  *http.Client
	webhook string
}

func NewDiscordNotifier(client *http.Client, webhook string) *DiscordNotifier {
	return &DiscordNotifier{client: client, webhook: webhook}
}

// Send posts the messages in order and stops at the first failure
func (d *DiscordNotifier) Send(ctx context.Context, snapshot checker.Snapshot) error {
	for _, chunk := range splitLines(Render(snapshot), DiscordMessageLimit) {
		if err := postJSON(ctx, d.client, d.webhook, discordPayload{Content: chunk}); err != nil {
			return err
		}
	}
	return nil
}

// splitLines packs whole lines into chunks of at most limit characters.
// A single line longer than limit is cut.
func splitLines(text string, limit int) []string {
	if text == "" {
		return nil
	}

	var (
		chunks []string
		b      strings.Builder
		size   int
	)
	flush := func() {
		if size > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
			size = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > limit {
			flush()
			cut := runeOffset(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}

		n := utf8.RuneCountInString(line)
		if size > 0 && size+1+n > limit {
			flush()
		}
		if size > 0 {
			b.WriteByte('\n')
			size++
		}
		b.WriteString(line)
		size += n
	}
	flush()

	return chunks
}

// runeOffset returns the byte offset of the n-th rune in s
func runeOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}
