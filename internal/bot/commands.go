package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"riel/internal/core"
	"riel/internal/export"
	"riel/internal/report"
)

const helpText = `Hi! I keep your money notes 🤖

Commands:
• /store <text> [#tag]
• /sum [daily|weekly|monthly] [#tag]  (or /sum <text> to store and show today)
• /list [YYYY-MM-DD] [#tag]
• /total [daily|weekly|monthly] [#tag]
• /export daily|weekly|monthly [#tag]
• /search <keywords> [#tag]
• /editlast <new text>
• /delete <id|last>
• /clear daily|weekly|monthly [#tag] [confirm]
• /update <id> <new text>
• /breakdown [daily|weekly|monthly]
• /sumcats [daily|weekly|monthly]
• /sumid <entry_id>
• /topcats [daily|weekly|monthly]
• /trend <daily|weekly> [#tag]`

const (
	listCap   = 50
	searchCap = 20
)

func (b *Bot) dispatch(ctx context.Context, ownerID, who, cmd, args string) (reply, error) {
	switch cmd {
	case "start", "help":
		return reply{text: helpText}, nil
	case "store":
		return b.storeCmd(ctx, ownerID, who, args)
	case "list":
		return b.listCmd(ctx, ownerID, args)
	case "sum":
		return b.sumCmd(ctx, ownerID, who, args)
	case "total":
		return b.totalCmd(ctx, ownerID, who, args)
	case "export":
		return b.exportCmd(ctx, ownerID, who, args)
	case "search":
		return b.searchCmd(ctx, ownerID, args)
	case "editlast":
		return b.editLastCmd(ctx, ownerID, who, args)
	case "delete":
		return b.deleteCmd(ctx, ownerID, who, args)
	case "clear":
		return b.clearCmd(ctx, ownerID, who, args)
	case "update":
		return b.updateCmd(ctx, ownerID, who, args)
	case "breakdown":
		return b.breakdownCmd(ctx, ownerID, who, args)
	case "sumcats":
		return b.sumCatsCmd(ctx, ownerID, args)
	case "sumid":
		return b.sumIDCmd(ctx, ownerID, args)
	case "topcats":
		return b.topCatsCmd(ctx, ownerID, who, args)
	case "trend":
		return b.trendCmd(ctx, ownerID, args)
	}
	return reply{text: "Unknown command. Try /help"}, nil
}

// parsedArgs holds the keyword tokens the commands share: a period,
// a #tag and the confirm flag. Everything else lands in rest.
type parsedArgs struct {
	period    core.PeriodKind
	hasPeriod bool
	category  string
	confirm   bool
	rest      []string
}

func parseArgs(args string) parsedArgs {
	var p parsedArgs
	for _, tok := range strings.Fields(args) {
		low := strings.ToLower(tok)
		switch {
		case low == "daily" || low == "weekly" || low == "monthly":
			p.period, _ = core.ParsePeriod(low)
			p.hasPeriod = true
		case low == "confirm":
			p.confirm = true
		case strings.HasPrefix(low, "#") && len(low) > 1:
			p.category = strings.TrimPrefix(low, "#")
		default:
			p.rest = append(p.rest, tok)
		}
	}
	return p
}

func (b *Bot) storeCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	text := strings.TrimSpace(args)
	if text == "" {
		return reply{text: "Usage: /store <your text> [#tag]"}, nil
	}
	if b.guard.isDup(ownerID, text) {
		return reply{text: "Ignored duplicate message (sent too quickly)."}, nil
	}

	cand := b.extractor.Extract(text, ownerID, time.Now())
	id, err := b.store.Insert(ctx, cand.Entry())
	if err != nil {
		return reply{}, fmt.Errorf("store entry: %w", err)
	}
	return reply{text: fmt.Sprintf("✅ Stored (id %d) by %s.", id, who)}, nil
}

func (b *Bot) listCmd(ctx context.Context, ownerID, args string) (reply, error) {
	p := parseArgs(args)
	f := core.FilterSpec{OwnerID: ownerID, Category: p.category}

	var dayHint string
	if len(p.rest) > 0 {
		day, err := time.ParseInLocation("2006-01-02", p.rest[0], b.reports.Location())
		if err == nil {
			end := day.AddDate(0, 0, 1)
			f.Start, f.End = &day, &end
			dayHint = " on " + p.rest[0]
		}
	}

	entries, err := b.reports.List(ctx, f)
	if err != nil {
		return reply{}, err
	}
	if len(entries) == 0 {
		hint := dayHint
		if p.category != "" {
			hint += " for #" + p.category
		}
		return reply{text: fmt.Sprintf("No entries%s.", hint)}, nil
	}

	var lines []string
	for _, e := range entries[:min(len(entries), listCap)] {
		when := e.Timestamp.In(b.reports.Location()).Format("2006-01-02 15:04")
		lines = append(lines, fmt.Sprintf("- [%d] [%s] %s", e.ID, when, truncateText(e.RawText, 200)))
	}
	if len(entries) > listCap {
		lines = append(lines, fmt.Sprintf("…and %d more.", len(entries)-listCap))
	}
	return reply{text: strings.Join(lines, "\n")}, nil
}

func (b *Bot) sumCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	p := parseArgs(args)
	period := core.Daily
	if p.hasPeriod {
		period = p.period
	}

	var stored string
	if len(p.rest) > 0 {
		// Free text: store it first, then show today.
		text := strings.TrimSpace(args)
		if b.guard.isDup(ownerID, text) {
			stored = "Ignored duplicate message (sent too quickly).\n"
		} else {
			cand := b.extractor.Extract(text, ownerID, time.Now())
			if _, err := b.store.Insert(ctx, cand.Entry()); err != nil {
				return reply{}, fmt.Errorf("store entry: %w", err)
			}
			stored = fmt.Sprintf("✅ Stored by %s. Showing today's entries…\n", who)
		}
		// The follow-up listing keeps the parsed tag filter.
		period = core.Daily
	}

	window, err := b.reports.ResolveWindow(period, time.Now())
	if err != nil {
		return reply{}, err
	}
	f := core.FilterSpec{OwnerID: ownerID, Category: p.category}.WithWindow(window)

	res, err := b.reports.Sum(ctx, f, true)
	if err != nil {
		return reply{}, err
	}

	header := fmt.Sprintf("🧾 %s entries (%s) • %s", titleCase(period), window.Label, who)
	if p.category != "" {
		header += " • #" + p.category
	}
	if len(res.Entries) == 0 {
		return reply{text: stored + header + "\nNo entries."}, nil
	}

	var lines []string
	for _, e := range res.Entries[:min(len(res.Entries), listCap)] {
		when := e.Timestamp.In(b.reports.Location()).Format("15:04")
		line := fmt.Sprintf("• %s %s", when, truncateText(e.RawText, 200))
		if e.HasAmount() {
			line += fmt.Sprintf("\n    ↳ amount: %s", formatAmount(*e.Amount))
		}
		lines = append(lines, line)
	}
	if len(res.Entries) > listCap {
		lines = append(lines, fmt.Sprintf("…and %d more.", len(res.Entries)-listCap))
	}

	text := stored + header + fmt.Sprintf("\n💰 Total: %s\n", formatAmount(res.Grand.Total)) + strings.Join(lines, "\n")
	return reply{text: text}, nil
}

func (b *Bot) totalCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	p := parseArgs(args)
	period := core.Daily
	if p.hasPeriod {
		period = p.period
	}
	window, err := b.reports.ResolveWindow(period, time.Now())
	if err != nil {
		return reply{}, err
	}
	f := core.FilterSpec{OwnerID: ownerID, Category: p.category}.WithWindow(window)

	grand, err := b.reports.Total(ctx, f)
	if err != nil {
		return reply{}, err
	}
	tag := ""
	if p.category != "" {
		tag = " • #" + p.category
	}
	return reply{text: fmt.Sprintf("💰 %s total (%s)%s • %s: %s",
		titleCase(period), window.Label, tag, who, formatAmount(grand.Total))}, nil
}

func (b *Bot) exportCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	p := parseArgs(args)
	if !p.hasPeriod {
		return reply{text: "Usage: /export <daily|weekly|monthly> [#tag]"}, nil
	}
	window, err := b.reports.ResolveWindow(p.period, time.Now())
	if err != nil {
		return reply{}, err
	}
	f := core.FilterSpec{OwnerID: ownerID, Category: p.category}.WithWindow(window)

	entries, err := b.reports.List(ctx, f)
	if err != nil {
		return reply{}, err
	}
	if len(entries) == 0 {
		hint := ""
		if p.category != "" {
			hint = " for #" + p.category
		}
		return reply{text: fmt.Sprintf("No data for %s (%s)%s.", p.period, window.Label, hint)}, nil
	}

	label := window.Label
	if p.category != "" {
		label += "_" + p.category
	}
	if err := os.MkdirAll(b.exportDir, 0755); err != nil {
		return reply{}, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(b.exportDir, export.Filename(ownerID, p.period, label))
	file, err := os.Create(path)
	if err != nil {
		return reply{}, fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()
	if err := export.WriteCSV(file, entries, b.reports.Location()); err != nil {
		return reply{}, fmt.Errorf("write export: %w", err)
	}

	grand, err := b.reports.Total(ctx, f)
	if err != nil {
		return reply{}, err
	}
	tag := ""
	if p.category != "" {
		tag = " • #" + p.category
	}
	caption := fmt.Sprintf("%s export — %s%s • %s • 💰 Total: %s",
		titleCase(p.period), window.Label, tag, who, formatAmount(grand.Total))
	return reply{filePath: path, caption: caption}, nil
}

func (b *Bot) searchCmd(ctx context.Context, ownerID, args string) (reply, error) {
	p := parseArgs(args)
	q := strings.ToLower(strings.TrimSpace(strings.Join(p.rest, " ")))
	if q == "" {
		return reply{text: "Usage: /search <keywords> [#tag]"}, nil
	}

	entries, err := b.reports.List(ctx, core.FilterSpec{OwnerID: ownerID, Category: p.category})
	if err != nil {
		return reply{}, err
	}
	var hits []core.Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.RawText), q) {
			hits = append(hits, e)
		}
	}
	if len(hits) == 0 {
		hint := ""
		if p.category != "" {
			hint = " in #" + p.category
		}
		return reply{text: fmt.Sprintf("No matches for “%s”%s.", q, hint)}, nil
	}

	var lines []string
	for _, e := range hits[:min(len(hits), searchCap)] {
		when := e.Timestamp.In(b.reports.Location()).Format("2006-01-02 15:04")
		lines = append(lines, fmt.Sprintf("- [%d] [%s] %s", e.ID, when, truncateText(e.RawText, 200)))
	}
	if len(hits) > searchCap {
		lines = append(lines, fmt.Sprintf("…and %d more", len(hits)-searchCap))
	}
	return reply{text: strings.Join(lines, "\n")}, nil
}

func (b *Bot) editLastCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	newText := strings.TrimSpace(args)
	if newText == "" {
		return reply{text: "Usage: /editlast <new text>"}, nil
	}

	latest, err := b.store.Query(ctx, core.FilterSpec{OwnerID: ownerID, Page: 1, PageSize: 1})
	if err != nil {
		return reply{}, err
	}
	if len(latest) == 0 {
		return reply{text: "No entries."}, nil
	}

	if _, err := b.store.Update(ctx, ownerID, latest[0].ID, b.reparse(newText)); err != nil {
		return reply{}, err
	}
	return reply{text: fmt.Sprintf("✏️ Updated last entry [%d] • %s", latest[0].ID, who)}, nil
}

func (b *Bot) deleteCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	arg := strings.ToLower(strings.TrimSpace(args))
	if arg == "" {
		return reply{text: "Usage: /delete <id|last>"}, nil
	}
	if arg == "last" {
		if _, err := b.store.DeleteLast(ctx, ownerID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return reply{text: "No entries to delete. • " + who}, nil
			}
			return reply{}, err
		}
		return reply{text: "🗑️ Deleted the last entry. • " + who}, nil
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return reply{text: "Usage: /delete <id|last>"}, nil
	}
	if err := b.store.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return reply{text: fmt.Sprintf("Entry id %d not found • %s.", id, who)}, nil
		}
		return reply{}, err
	}
	return reply{text: fmt.Sprintf("🗑️ Deleted entry id %d • %s.", id, who)}, nil
}

func (b *Bot) clearCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	p := parseArgs(args)
	if !p.hasPeriod {
		return reply{text: "Usage: /clear <daily|weekly|monthly> [#tag] [confirm]"}, nil
	}
	window, err := b.reports.ResolveWindow(p.period, time.Now())
	if err != nil {
		return reply{}, err
	}
	f := core.FilterSpec{OwnerID: ownerID, Category: p.category}.WithWindow(window)

	tag := ""
	if p.category != "" {
		tag = " for #" + p.category
	}

	if !p.confirm {
		n, err := b.store.Count(ctx, f)
		if err != nil {
			return reply{}, err
		}
		catArg := ""
		if p.category != "" {
			catArg = " #" + p.category
		}
		return reply{text: fmt.Sprintf(
			"⚠️ This will delete %d entries for %s (%s)%s • %s.\nRun /clear %s%s confirm to proceed.",
			n, p.period, window.Label, tag, who, p.period, catArg)}, nil
	}

	var n int64
	if p.category == "" {
		n, err = b.store.DeleteRange(ctx, ownerID, window)
		if err != nil {
			return reply{}, err
		}
	} else {
		// Tag-scoped clears delete row by row; DeleteRange has no
		// category filter.
		entries, err := b.store.Query(ctx, f)
		if err != nil {
			return reply{}, err
		}
		for _, e := range entries {
			if err := b.store.Delete(ctx, ownerID, e.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
				return reply{}, err
			}
			n++
		}
	}
	return reply{text: fmt.Sprintf("🗑️ Deleted %d entries for %s (%s)%s • %s.",
		n, p.period, window.Label, tag, who)}, nil
}

func (b *Bot) updateCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return reply{text: "Usage: /update <id> <new text>"}, nil
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return reply{text: "Entry ID must be a number."}, nil
	}
	newText := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), fields[0]))

	if _, err := b.store.Update(ctx, ownerID, id, b.reparse(newText)); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return reply{text: fmt.Sprintf("Entry id %d not found • %s.", id, who)}, nil
		}
		return reply{}, err
	}
	return reply{text: fmt.Sprintf("✏️ Updated entry %d • %s:\n%s", id, who, newText)}, nil
}

func (b *Bot) breakdownCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	p := parseArgs(args)
	period := core.Daily
	if p.hasPeriod {
		period = p.period
	}
	window, err := b.reports.ResolveWindow(period, time.Now())
	if err != nil {
		return reply{}, err
	}
	f := core.FilterSpec{OwnerID: ownerID}.WithWindow(window)

	grand, err := b.reports.Total(ctx, f)
	if err != nil {
		return reply{}, err
	}
	if grand.Count == 0 {
		return reply{text: fmt.Sprintf("No entries for %s (%s) • %s.", period, window.Label, who)}, nil
	}
	return reply{text: fmt.Sprintf("📊 %s breakdown (%s) • %s\n💰 Total: %s (in: %s, out: %s)",
		titleCase(period), window.Label, who,
		formatAmount(grand.Total), formatAmount(grand.Positive), formatAmount(grand.Negative))}, nil
}

func (b *Bot) sumCatsCmd(ctx context.Context, ownerID, args string) (reply, error) {
	p := parseArgs(args)
	period := core.Daily
	if p.hasPeriod {
		period = p.period
	}
	window, err := b.reports.ResolveWindow(period, time.Now())
	if err != nil {
		return reply{}, err
	}
	f := core.FilterSpec{OwnerID: ownerID}.WithWindow(window)

	buckets, err := b.reports.Breakdown(ctx, f)
	if err != nil {
		return reply{}, err
	}
	if len(buckets) == 0 {
		return reply{text: fmt.Sprintf("No entries for %s (%s).", period, window.Label)}, nil
	}
	grand, err := b.reports.Total(ctx, f)
	if err != nil {
		return reply{}, err
	}

	lines := []string{fmt.Sprintf("📊 %s by category (%s)", titleCase(period), window.Label)}
	for _, bk := range buckets {
		lines = append(lines, fmt.Sprintf("#%s: %s", bk.Label, formatAmount(bk.Total)))
	}
	lines = append(lines, fmt.Sprintf("—\nTotal: %s", formatAmount(grand.Total)))
	return reply{text: strings.Join(lines, "\n")}, nil
}

func (b *Bot) sumIDCmd(ctx context.Context, ownerID, args string) (reply, error) {
	arg := strings.TrimSpace(args)
	if arg == "" {
		return reply{text: "Usage: /sumid <entry_id>"}, nil
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return reply{text: "Entry ID must be a number."}, nil
	}

	e, err := b.store.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return reply{text: fmt.Sprintf("Entry id %d not found.", id)}, nil
		}
		return reply{}, err
	}

	when := e.Timestamp.In(b.reports.Location()).Format("2006-01-02 15:04")
	amount := "—"
	if e.HasAmount() {
		amount = formatAmount(*e.Amount)
	}
	return reply{text: fmt.Sprintf("🧾 Entry [%d] (%s)\nText: %s\nAmount: %s", e.ID, when, e.RawText, amount)}, nil
}

func (b *Bot) topCatsCmd(ctx context.Context, ownerID, who, args string) (reply, error) {
	p := parseArgs(args)
	period := core.Daily
	if p.hasPeriod {
		period = p.period
	}
	window, err := b.reports.ResolveWindow(period, time.Now())
	if err != nil {
		return reply{}, err
	}
	f := core.FilterSpec{OwnerID: ownerID}.WithWindow(window)

	buckets, err := b.reports.Breakdown(ctx, f)
	if err != nil {
		return reply{}, err
	}
	if len(buckets) == 0 {
		return reply{text: fmt.Sprintf("No entries for %s (%s) • %s.", period, window.Label, who)}, nil
	}

	lines := []string{fmt.Sprintf("🏆 Top categories — %s (%s) • %s", titleCase(period), window.Label, who)}
	for _, bk := range buckets {
		lines = append(lines, fmt.Sprintf("#%s: %s", bk.Label, formatAmount(bk.Total)))
	}
	return reply{text: strings.Join(lines, "\n")}, nil
}

func (b *Bot) trendCmd(ctx context.Context, ownerID, args string) (reply, error) {
	p := parseArgs(args)
	kind, count := core.Daily, 7
	if p.hasPeriod && p.period == core.Weekly {
		kind, count = core.Weekly, 8
	}

	f := core.FilterSpec{OwnerID: ownerID, Category: p.category}
	buckets, err := b.reports.Trend(ctx, f, kind, count, time.Now())
	if err != nil {
		return reply{}, err
	}

	title := fmt.Sprintf("📈 Daily totals (last %d days)", count)
	if kind == core.Weekly {
		title = fmt.Sprintf("📈 Weekly totals (last %d weeks)", count)
	}
	if p.category != "" {
		title += " • #" + p.category
	}

	lines := []string{title}
	for _, bk := range buckets {
		lines = append(lines, fmt.Sprintf("%s: %s", bk.Label, formatAmount(bk.Total)))
	}
	return reply{text: strings.Join(lines, "\n")}, nil
}

// reparse rebuilds the parsed fields after a text edit, so the amount
// and category stay consistent with the new text.
func (b *Bot) reparse(newText string) report.UpdateFields {
	cand := b.extractor.Extract(newText, "", time.Time{})
	fields := report.UpdateFields{RawText: &newText, Category: &cand.Category}
	if cand.Amount != nil {
		fields.Amount = cand.Amount
	} else {
		fields.ClearAmount = true
	}
	return fields
}

func titleCase(kind core.PeriodKind) string {
	s := string(kind)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
