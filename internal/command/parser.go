package command

import (
	"regexp"
	"strings"
)

// /word[@bot] [args]
var pattern = regexp.MustCompile(`(?i)^/([^@\s]+)@?(?:(\S+)|)\s?([\s\S]+)?$`)

// Command - разобранная команда бота
type Command struct {
	Text    string // исходный текст сообщения
	Name    string // имя команды в нижнем регистре, без "/"
	Bot     string // суффикс @bot, для диспетчеризации не используется
	Args    string
	HasArgs bool
}

// Parse разбирает текст сообщения. false - это не команда.
func Parse(text string) (Command, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	return Command{
		Text:    text,
		Name:    strings.ToLower(m[1]),
		Bot:     m[2],
		Args:    m[3],
		HasArgs: m[3] != "",
	}, true
}

// SplitArgs - аргументы по пробельным символам, без пустых токенов
func (c Command) SplitArgs() []string {
	if !c.HasArgs {
		return []string{}
	}
	return strings.Fields(c.Args)
}
