// Package advisor generates Islamic financial guidance from a spending
// summary, using the Anthropic API when reachable and canned advice when
// offline.
package advisor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/shopspring/decimal"

	"github.com/barakahspend/barakah/internal/score"
)

// DefaultModel is used when no model is configured.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_5)

// Summary is the financial snapshot an advice request is built from.
type Summary struct {
	MonthlyIncome  decimal.Decimal
	MonthlyExpense decimal.Decimal
	MonthlySedekah decimal.Decimal
	TotalSavings   decimal.Decimal
	TotalDebt      decimal.Decimal
	Score          score.Result
}

// Advice is a generated recommendation.
type Advice struct {
	Text   string
	Source string // "api" or "offline"
	Model  string
	At     time.Time
}

// Config holds advisor configuration.
type Config struct {
	// APIKey authenticates against the Anthropic API. Empty disables
	// API calls and forces offline advice.
	APIKey string

	// Model to query (default: DefaultModel).
	Model string

	// MaxTokens bounds the response length (default: 1024).
	MaxTokens int64

	// Logger for advisor activity (default: log.Default()).
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model:     DefaultModel,
		MaxTokens: 1024,
		Logger:    log.Default(),
	}
}

// Advisor produces financial advice.
type Advisor struct {
	client anthropic.Client
	config *Config
}

// New creates an advisor. The API client is constructed even without a
// key so tests can swap request options.
func New(config *Config, opts ...option.RequestOption) *Advisor {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	clientOpts := append([]option.RequestOption{option.WithAPIKey(config.APIKey)}, opts...)
	return &Advisor{
		client: anthropic.NewClient(clientOpts...),
		config: config,
	}
}

const systemPrompt = `You are a financial advisor grounded in Islamic principles.
You help Malaysian Muslims manage money with barakah: halal spending, consistent
sedekah, zakat obligations, and debt avoidance. Answer in 3-5 short, practical
paragraphs. Use Malaysian Ringgit (RM) amounts. Be warm but concrete.`

// Advise requests guidance from the API for the given summary. When the
// request cannot be made or fails, it falls back to offline advice.
func (a *Advisor) Advise(ctx context.Context, sum Summary) Advice {
	if a.config.APIKey == "" {
		return a.offline(sum)
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: a.config.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(sum))),
		},
	})
	if err != nil {
		a.config.Logger.Printf("Advice request failed, falling back to offline advice: %v", err)
		return a.offline(sum)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		a.config.Logger.Printf("Advice response contained no text, falling back to offline advice")
		return a.offline(sum)
	}

	return Advice{
		Text:   text.String(),
		Source: "api",
		Model:  a.config.Model,
		At:     time.Now().UTC(),
	}
}

func (a *Advisor) offline(sum Summary) Advice {
	return Advice{
		Text:   OfflineAdvice(sum),
		Source: "offline",
		At:     time.Now().UTC(),
	}
}

// buildPrompt renders the spending summary as the user message.
func buildPrompt(sum Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is my financial snapshot for this month:\n")
	fmt.Fprintf(&b, "- Monthly income: RM%s\n", sum.MonthlyIncome.StringFixed(2))
	fmt.Fprintf(&b, "- Monthly expenses: RM%s\n", sum.MonthlyExpense.StringFixed(2))
	fmt.Fprintf(&b, "- Monthly sedekah: RM%s\n", sum.MonthlySedekah.StringFixed(2))
	fmt.Fprintf(&b, "- Total savings: RM%s\n", sum.TotalSavings.StringFixed(2))
	fmt.Fprintf(&b, "- Total debt: RM%s\n", sum.TotalDebt.StringFixed(2))
	fmt.Fprintf(&b, "- Barakah score: %d/100 (%s)\n", sum.Score.Score, sum.Score.Tier)
	fmt.Fprintf(&b, "\nGive me advice on improving my financial barakah.")
	return b.String()
}

// OfflineAdvice returns canned guidance tiered on the barakah score.
func OfflineAdvice(sum Summary) string {
	switch {
	case sum.Score.Score >= 80:
		return "MasyaAllah, your finances are in excellent shape. Keep your sedekah " +
			"consistent and consider growing your savings through shariah-compliant " +
			"investments such as ASB or Tabung Haji. Review your zakat obligation " +
			"annually so nothing is missed."
	case sum.Score.Score >= 50:
		return "Alhamdulillah, you are on a steady path. Aim to save at least 20% of " +
			"your income each month and set a fixed sedekah amount, even RM10 weekly, " +
			"to build consistency. If you carry debt, prioritize clearing the " +
			"highest-burden obligations first."
	default:
		return "Start with one habit: record every expense for 30 days so you can see " +
			"where your money flows. Cut one unnecessary spending category and " +
			"redirect it to savings. Even the smallest sedekah given consistently " +
			"invites barakah into your rezeki."
	}
}
