package bot

import "strings"

// Command keywords.
const (
	KeywordStart        = "start"
	KeywordCommands     = "commands"
	KeywordTaskAdd      = "tugas-tambah"
	KeywordTaskList     = "tugas"
	KeywordTaskDelete   = "tugas-hapus"
	KeywordTimezoneEdit = "timezone-edit"
)

var keywordAliases = map[string]string{
	"timezone": KeywordTimezoneEdit,
	"tz":       KeywordTimezoneEdit,
}

// Phones and chat apps like to autocorrect "-" into one of these.
var dashReplacer = strings.NewReplacer(
	"\u2010", "-",
	"\u2011", "-",
	"\u2012", "-",
	"\u2013", "-",
	"\u2014", "-",
	"\u2015", "-",
	"\u2212", "-",
	"\uFE58", "-",
	"\uFE63", "-",
	"\uFF0D", "-",
)

// Command is one parsed chat line.
type Command struct {
	Keyword string
	// Args are the whitespace-separated tokens after the keyword.
	Args []string
	// Fields are the comma-separated, trimmed fields of the argument text.
	Fields []string
}

// Parse turns a single line into a Command. ok is false when the line does
// not start with prefix. Parse is lexical only; it never validates fields.
func Parse(line, prefix string) (Command, bool) {
	line = strings.TrimSpace(line)
	if prefix == "" || !strings.HasPrefix(line, prefix) {
		return Command{}, false
	}

	body := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	body = dashReplacer.Replace(body)

	tokens := strings.Fields(body)
	if len(tokens) == 0 {
		return Command{}, true
	}

	keyword := strings.ToLower(tokens[0])
	if alias, ok := keywordAliases[keyword]; ok {
		keyword = alias
	}

	cmd := Command{Keyword: keyword, Args: tokens[1:]}
	if len(cmd.Args) > 0 {
		parts := strings.Split(strings.Join(cmd.Args, " "), ",")
		cmd.Fields = make([]string, len(parts))
		for i, part := range parts {
			cmd.Fields[i] = strings.TrimSpace(part)
		}
	}
	return cmd, true
}
