package command_test

import (
	"reflect"
	"testing"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/command"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		ok      bool
		cmd     string
		bot     string
		args    []string
		hasArgs bool
	}{
		{name: "bare", text: "/list", ok: true, cmd: "list", args: []string{}},
		{name: "upper case name", text: "/LIST", ok: true, cmd: "list", args: []string{}},
		{name: "with bot suffix", text: "/list@rates_bot", ok: true, cmd: "list", bot: "rates_bot", args: []string{}},
		{
			name: "exchange args", text: "/exchange 10 USD to CAD", ok: true, cmd: "exchange",
			args: []string{"10", "USD", "to", "CAD"}, hasArgs: true,
		},
		{
			name: "extra whitespace", text: "/history   eur \n to  usd", ok: true, cmd: "history",
			args: []string{"eur", "to", "usd"}, hasArgs: true,
		},
		{name: "plain text", text: "hello", ok: false},
		{name: "empty", text: "", ok: false},
		{name: "slash only", text: "/", ok: false},
		{name: "leading space", text: " /list", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := command.Parse(tt.text)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Name != tt.cmd {
				t.Fatalf("name = %q, want %q", got.Name, tt.cmd)
			}
			if got.Bot != tt.bot {
				t.Fatalf("bot = %q, want %q", got.Bot, tt.bot)
			}
			if got.HasArgs != tt.hasArgs {
				t.Fatalf("hasArgs = %v, want %v", got.HasArgs, tt.hasArgs)
			}
			if got.Text != tt.text {
				t.Fatalf("text = %q, want %q", got.Text, tt.text)
			}
			if args := got.SplitArgs(); !reflect.DeepEqual(args, tt.args) {
				t.Fatalf("args = %#v, want %#v", args, tt.args)
			}
		})
	}
}
