package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"faqbot/internal/matcher"
	"faqbot/internal/models"
	"faqbot/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var quitWords = []string{"quit", "quitter", "exit"}

// chatLoop reads one utterance per line until EOF or a quit word.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, chat *service.ChatService) error {
	fmt.Fprintln(out, titleStyle.Render("Assistant annonces légales"))
	fmt.Fprintln(out, dimStyle.Render("Tapez 'quit' pour quitter, 'aide' pour l'aide"))

	session := uuid.New()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nVous: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isQuit(line) {
			fmt.Fprintln(out, service.FarewellReply)
			return nil
		}

		reply, err := chat.Respond(ctx, session, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Bot: %s\n", reply.Text)
		if reply.Confidence != "" {
			fmt.Fprintln(out, dimStyle.Render("("+reply.Confidence+")"))
		}
	}
	return scanner.Err()
}

func isQuit(line string) bool {
	line = strings.ToLower(line)
	for _, w := range quitWords {
		if line == w {
			return true
		}
	}
	return false
}

func printMatch(ctx context.Context, out io.Writer, m *matcher.Matcher, text string, explain bool) error {
	res := m.FindBestMatch(ctx, text)
	if !res.Matched() {
		fmt.Fprintf(out, "%s (threshold %.2f)\n", errorStyle.Render("no match"), m.Threshold())
	} else {
		fmt.Fprintf(out, "%s %s/%s score=%.3f path=%s\n",
			successStyle.Render("match"), res.Kind, res.EntryID, res.Score, res.Path)
	}

	if explain {
		fmt.Fprintf(out, "\n%-28s %-9s %8s %8s %8s %8s\n", "ENTRY", "KIND", "KEYWORD", "QUESTION", "VARIANT", "TOTAL")
		for _, s := range m.Explain(text) {
			fmt.Fprintf(out, "%-28s %-9s %8.3f %8.3f %8.3f %8.3f\n",
				s.EntryID, s.Kind, s.Keyword, s.Question, s.Variation, s.Final)
		}
	}
	return nil
}

func printEntries(out io.Writer, knowledge *service.KnowledgeService, kind models.EntryKind, query string) {
	if query != "" {
		for _, hit := range knowledge.Search(kind, query, 0) {
			fmt.Fprintf(out, "%-9s %-28s %s\n", hit.Kind, hit.Entry.ID, dimStyle.Render(hit.Entry.DisplayName()))
		}
		return
	}

	kinds := []models.EntryKind{models.KindCategory, models.KindFaq}
	if kind != models.KindNone {
		kinds = []models.EntryKind{kind}
	}
	for _, k := range kinds {
		for _, e := range knowledge.List(k) {
			fmt.Fprintf(out, "%-9s %-28s %s\n", k, e.ID, dimStyle.Render(e.DisplayName()))
		}
	}
}

// entryForm collects entry fields from flags.
type entryForm struct {
	id         string
	name       string
	question   string
	answer     string
	keywords   []string
	questions  []string
	variations []string
	responses  []string
}

func (f *entryForm) bind(cmd *cobra.Command, category bool) {
	cmd.Flags().StringVar(&f.id, "id", "", "entry id (lowercase letters, digits, '_' or '-')")
	cmd.Flags().StringSliceVar(&f.keywords, "keywords", nil, "comma separated keywords")
	cmd.Flags().StringArrayVar(&f.variations, "variation", nil, "example variation (repeatable)")
	_ = cmd.MarkFlagRequired("id")

	if category {
		cmd.Flags().StringVar(&f.name, "name", "", "display name")
		cmd.Flags().StringArrayVar(&f.questions, "question", nil, "example question (repeatable)")
		cmd.Flags().StringArrayVar(&f.responses, "response", nil, "response (repeatable)")
		_ = cmd.MarkFlagRequired("response")
		return
	}
	cmd.Flags().StringVar(&f.question, "question", "", "the FAQ question")
	cmd.Flags().StringVar(&f.answer, "answer", "", "the FAQ answer")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("answer")
}

func (f *entryForm) category() *models.Entry {
	e := &models.Entry{
		ID:       f.id,
		Name:     f.name,
		Keywords: trimAll(f.keywords),
		Examples: models.Examples{Questions: trimAll(f.questions), Variations: trimAll(f.variations)},
	}
	for _, r := range trimAll(f.responses) {
		e.Responses = append(e.Responses, models.Response{Content: r})
	}
	return e
}

func (f *entryForm) faq() *models.Entry {
	return &models.Entry{
		ID:       f.id,
		Keywords: trimAll(f.keywords),
		Question: strings.TrimSpace(f.question),
		Answer:   strings.TrimSpace(f.answer),
		Examples: models.Examples{Variations: trimAll(f.variations)},
	}
}

func saveEntry(cmd *cobra.Command, knowledge *service.KnowledgeService, kind models.EntryKind, e *models.Entry) error {
	created, err := knowledge.Upsert(cmd.Context(), kind, e)
	if err != nil {
		return err
	}
	verb := "updated"
	if created {
		verb = "added"
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ %s %s %s", kind, e.ID, verb)))
	return nil
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
