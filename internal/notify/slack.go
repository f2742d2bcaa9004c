// Package notify delivers human alerts through a Slack-compatible incoming
// webhook. Delivery is always best-effort with respect to the operation that
// triggered it: a failure here is reported, never escalated.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stockroom/internal/core"
)

// Message is the webhook payload: Text is the plain fallback, Blocks the
// optional rich rendering.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Block is a Slack Block Kit block. Only the section/header shapes this
// service emits are modeled.
type Block struct {
	Type string     `json:"type"`
	Text *BlockText `json:"text,omitempty"`
}

type BlockText struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

func sectionBlock(md string) Block {
	return Block{Type: "section", Text: &BlockText{Type: "mrkdwn", Text: md}}
}

func headerBlock(text string) Block {
	return Block{Type: "header", Text: &BlockText{Type: "plain_text", Text: text}}
}

// Notifier posts messages to the configured alert channel.
type Notifier interface {
	Post(ctx context.Context, msg Message) error
}

// WebhookNotifier posts JSON messages to a pre-shared webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier constructs a notifier for the given webhook URL. The
// URL is required configuration — there is deliberately no fallback value.
func NewWebhookNotifier(url string) (*WebhookNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Post delivers msg to the webhook. If the rich payload is rejected with a
// 4xx while blocks are present, it retries once with the plain-text fallback
// so the core alert survives a formatting rejection. All failures wrap
// core.ErrNotification.
func (n *WebhookNotifier) Post(ctx context.Context, msg Message) error {
	status, err := n.send(ctx, msg)
	if err == nil {
		return nil
	}

	if len(msg.Blocks) > 0 && status >= 400 && status < 500 {
		if _, fbErr := n.send(ctx, Message{Text: msg.Text}); fbErr == nil {
			return nil
		}
	}
	return err
}

func (n *WebhookNotifier) send(ctx context.Context, msg Message) (int, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("%w: encode payload: %v", core.ErrNotification, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", core.ErrNotification, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrNotification, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%w: webhook returned HTTP %d", core.ErrNotification, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// maxDetailedItems caps the per-item lines in a low-stock message so a large
// report stays within Slack's 50-block limit.
const maxDetailedItems = 20

// BuildLowStockMessage renders a low-stock report: a count header plus one
// line per item with an actionable reorder link. linkTemplate is a format
// string with one %s verb for the part number; empty disables links.
// The plain-text fallback carries the count and the first few part numbers.
func BuildLowStockMessage(items []core.LowStockItem, linkTemplate string) Message {
	header := fmt.Sprintf("Low stock: %d item(s) at or below reorder point", len(items))

	var parts []string
	for i, ls := range items {
		if i >= 5 {
			parts = append(parts, fmt.Sprintf("(+%d more)", len(items)-5))
			break
		}
		parts = append(parts, ls.Item.PartNumber)
	}
	fallback := header
	if len(parts) > 0 {
		fallback += ": " + strings.Join(parts, ", ")
	}

	blocks := []Block{headerBlock(header)}
	for i, ls := range items {
		if i >= maxDetailedItems {
			blocks = append(blocks, sectionBlock(fmt.Sprintf("_…and %d more items._", len(items)-maxDetailedItems)))
			break
		}
		line := fmt.Sprintf("*%s* — %s\nQty *%d* / reorder at %d · %s · %s",
			ls.Item.PartNumber, ls.Item.Description,
			ls.Item.Quantity, ls.EffectiveReorderPoint,
			ls.Item.Supplier, ls.Item.Location)
		if linkTemplate != "" {
			line += fmt.Sprintf("\n<%s|Reorder %s>", fmt.Sprintf(linkTemplate, ls.Item.PartNumber), ls.Item.PartNumber)
		}
		blocks = append(blocks, sectionBlock(line))
	}

	return Message{Text: fallback, Blocks: blocks}
}

// BuildChangeMessage renders a human-readable summary of a newly submitted
// pending change, referencing the change id so a reviewer can act on it.
func BuildChangeMessage(change *core.PendingChange) Message {
	var summary string
	switch change.Type {
	case core.ChangeTypeAdd:
		qty := 0
		if change.Item.Quantity != nil {
			qty = change.Item.Quantity.Value
		}
		summary = fmt.Sprintf("%s proposes adding part *%s* (qty %d)", change.RequestedBy, change.Item.PartNumber, qty)
	case core.ChangeTypeEdit:
		summary = fmt.Sprintf("%s proposes editing part *%s*", change.RequestedBy, change.Item.PartNumber)
	case core.ChangeTypeAddStock:
		target := ""
		if change.TargetChangeID != nil {
			target = *change.TargetChangeID
		}
		delta := 0
		if change.Item.Quantity != nil {
			delta = change.Item.Quantity.Value
		}
		summary = fmt.Sprintf("%s proposes adding %d to pending change `%s`", change.RequestedBy, delta, target)
	default:
		summary = fmt.Sprintf("%s submitted a %s change", change.RequestedBy, change.Type)
	}

	text := fmt.Sprintf("Pending approval: %s (change %s)", stripMarkdown(summary), change.ID)

	blocks := []Block{
		sectionBlock(summary),
		sectionBlock(fmt.Sprintf("Change id: `%s` — awaiting review", change.ID)),
	}
	if len(change.Warnings) > 0 {
		blocks = append(blocks, sectionBlock(":warning: "+strings.Join(change.Warnings, "\n:warning: ")))
	}

	return Message{Text: text, Blocks: blocks}
}

func stripMarkdown(s string) string {
	return strings.NewReplacer("*", "", "`", "", "_", "").Replace(s)
}
