package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/command"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
	errs "github.com/NastyaGoryachaya/exchange-rates-bot/internal/errors"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/metrics"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/service/history"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/service/rates"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mocks.go -package=mocks

const (
	msgStart         = "Hello, how can I help You?"
	msgExchangeUsage = "Please enter in format: /exchange x currency1 to currency2"
	msgHistoryUsage  = "Please enter in format: /history currency1 [to currency2]"
	msgNoData        = "Exchange rates are not available right now, please try again later"
	msgInternal      = "Something went wrong, please try again later"
	msgUnavailable   = "Rates are not available for: "
	msgListHeader    = "Exchange rate relative to " + domain.BaseCurrency + ":\n\n"

	msgHelp = "Available commands:\n" +
		"/list - exchange rates relative to USD\n" +
		"/exchange x currency1 to currency2 - convert an amount, e.g. /exchange 10 USD to CAD\n" +
		"/history currency1 [to currency2] - chart for the last week, e.g. /history EUR to USD"

	defaultHandlerTimeout = 15 * time.Second
)

// Replier - куда отправлять ответ. Не зависит от конкретного мессенджера.
type Replier interface {
	Reply(text string) error
	ReplyWithPhoto(url string) error
}

type handlerFunc func(ctx context.Context, r Replier, cmd command.Command) error

// Handlers - обработчики команд бота
type Handlers struct {
	rates   rates.Service
	history history.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
	timeout time.Duration
	routes  map[string]handlerFunc
}

func NewHandlers(ratesSvc rates.Service, historySvc history.Service, m *metrics.Metrics, logger *slog.Logger, timeout time.Duration) *Handlers {
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	h := &Handlers{
		rates:   ratesSvc,
		history: historySvc,
		metrics: m,
		logger:  logger,
		timeout: timeout,
	}
	h.routes = map[string]handlerFunc{
		"start":    h.handleStart,
		"help":     h.handleHelp,
		"list":     h.handleList,
		"exchange": h.handleExchange,
		"history":  h.handleHistory,
	}
	return h
}

// Dispatch разбирает текст и вызывает нужный обработчик.
// Не команды и неизвестные команды молча игнорируются.
func (h *Handlers) Dispatch(ctx context.Context, r Replier, text string) error {
	cmd, ok := command.Parse(text)
	if !ok {
		return nil
	}
	handle, ok := h.routes[cmd.Name]
	if !ok {
		h.logger.Debug("bot: unknown command ignored", slog.String("command", cmd.Name))
		return nil
	}
	h.metrics.IncCommand(cmd.Name)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := handle(ctx, r, cmd); err != nil {
		h.logger.Error("bot: reply failed",
			slog.String("command", cmd.Name),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

func (h *Handlers) handleStart(_ context.Context, r Replier, _ command.Command) error {
	return r.Reply(msgStart)
}

func (h *Handlers) handleHelp(_ context.Context, r Replier, _ command.Command) error {
	return r.Reply(msgHelp)
}

// handleList - все курсы относительно USD, по алфавиту
func (h *Handlers) handleList(ctx context.Context, r Replier, _ command.Command) error {
	view, err := h.rates.Resolve(ctx, nil)
	if err != nil {
		return h.replyResolveError(r, "list", err)
	}
	return r.Reply(FormatList(view.Rates))
}

// handleExchange - /exchange <amount> <c1> to <c2>
func (h *Handlers) handleExchange(ctx context.Context, r Replier, cmd command.Command) error {
	args := cmd.SplitArgs()
	if len(args) < 4 || !strings.EqualFold(args[2], "to") {
		return r.Reply(msgExchangeUsage)
	}
	amountRaw := args[0]
	amount, err := strconv.ParseFloat(amountRaw, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return r.Reply(msgExchangeUsage)
	}
	from := strings.ToUpper(args[1])
	to := strings.ToUpper(args[3])

	view, err := h.rates.Resolve(ctx, []string{from, to})
	if err != nil {
		return h.replyResolveError(r, "exchange", err)
	}
	if len(view.Unavailable) > 0 {
		return r.Reply(msgUnavailable + strings.Join(view.Unavailable, " "))
	}

	result, err := rates.Convert(amount, view.Rates[from], view.Rates[to])
	if err != nil {
		h.logger.Error("bot: convert failed",
			slog.String("from", from),
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return r.Reply(msgInternal)
	}
	return r.Reply(fmt.Sprintf("%s %s = %s %s", amountRaw, from, fixed2(result), to))
}

// handleHistory - /history <c1> [to <c2>], c2 по умолчанию USD
func (h *Handlers) handleHistory(ctx context.Context, r Replier, cmd command.Command) error {
	args := cmd.SplitArgs()
	base := domain.BaseCurrency
	switch {
	case len(args) == 1:
	case len(args) == 3 && strings.EqualFold(args[1], "to"):
		base = strings.ToUpper(args[2])
	default:
		return r.Reply(msgHistoryUsage)
	}
	symbol := strings.ToUpper(args[0])

	url, err := h.history.Chart(ctx, symbol, base)
	if err != nil {
		var perr *errs.ProviderError
		switch {
		case errors.As(err, &perr):
			return r.Reply(perr.Message)
		case errors.Is(err, errs.ErrNoHistory):
			return r.Reply(fmt.Sprintf("No data for %s relative to %s for the last week", symbol, base))
		default:
			h.logger.Error("bot: history failed",
				slog.String("symbol", symbol),
				slog.String("base", base),
				slog.String("error", err.Error()),
			)
			return r.Reply(msgInternal)
		}
	}
	return r.ReplyWithPhoto(url)
}

func (h *Handlers) replyResolveError(r Replier, op string, err error) error {
	if errors.Is(err, errs.ErrNoRatesData) {
		h.logger.Warn("bot: no rates data", slog.String("command", op))
		return r.Reply(msgNoData)
	}
	h.logger.Error("bot: resolve failed",
		slog.String("command", op),
		slog.String("error", err.Error()),
	)
	return r.Reply(msgInternal)
}

// FormatList - заголовок и строки "CODE: 0.00", отсортированные по коду
func FormatList(list map[string]float64) string {
	codes := make([]string, 0, len(list))
	for code := range list {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var b strings.Builder
	b.WriteString(msgListHeader)
	for _, code := range codes {
		fmt.Fprintf(&b, "%s: %s\n", code, fixed2(list[code]))
	}
	return b.String()
}

// fixed2 - два знака после запятой, округление половины от нуля
func fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
