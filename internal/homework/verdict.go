package homework

import (
	"fmt"
	"sort"
	"strings"

	"hwbot/internal/errkind"
	logx "hwbot/pkg/logx"
)

// DefaultMessageFormat is the status change message. The first verb is the
// homework name, the second the verdict.
const DefaultMessageFormat = `Изменился статус проверки работы "%s". %s`

var defaultVerdicts = map[string]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// KnownStatus reports whether code is one of the three API status codes.
func KnownStatus(code string) bool {
	_, ok := defaultVerdicts[code]
	return ok
}

// VerdictTable maps status codes to display text. It is read-only once built.
type VerdictTable struct {
	m map[string]string
}

// DefaultVerdicts returns the built-in verdict texts.
func DefaultVerdicts() VerdictTable {
	m := make(map[string]string, len(defaultVerdicts))
	for k, v := range defaultVerdicts {
		m[k] = v
	}
	return VerdictTable{m: m}
}

// NewVerdictTable returns the default table with the display text of known
// codes replaced by overrides. Overrides cannot introduce new codes.
func NewVerdictTable(overrides map[string]string) (VerdictTable, error) {
	m := DefaultVerdicts().m
	for code, text := range overrides {
		if !KnownStatus(code) {
			return VerdictTable{}, fmt.Errorf("verdict for unknown status %q (known: %s)", code, strings.Join(KnownStatuses(), ", "))
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return VerdictTable{}, fmt.Errorf("verdict for status %q is empty", code)
		}
		m[code] = text
	}
	return VerdictTable{m: m}, nil
}

// Lookup returns the display text for code.
func (t VerdictTable) Lookup(code string) (string, bool) {
	v, ok := t.m[code]
	return v, ok
}

// KnownStatuses returns the status codes in sorted order.
func KnownStatuses() []string {
	out := make([]string, 0, len(defaultVerdicts))
	for k := range defaultVerdicts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// UnknownStatusError names a status code that is not in the verdict table.
type UnknownStatusError struct {
	Name   string
	Status string
}

func (e *UnknownStatusError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %q (homework %q)", errkind.ErrUnknownStatus, e.Status, e.Name)
	}
	return fmt.Sprintf("%s: %q", errkind.ErrUnknownStatus, e.Status)
}

func (e *UnknownStatusError) Unwrap() error { return errkind.ErrUnknownStatus }

// CheckFormat verifies that format has exactly verbs "%s" verbs and no other
// directives besides "%%".
func CheckFormat(format string, verbs int) error {
	rest := strings.ReplaceAll(format, "%%", "")
	if n := strings.Count(rest, "%s"); n != verbs {
		return fmt.Errorf("format %q must contain %d %%s verb(s), found %d", format, verbs, n)
	}
	if strings.Count(rest, "%") != verbs {
		return fmt.Errorf("format %q contains unsupported verbs (only %%s is allowed)", format)
	}
	return nil
}

// Translator turns raw tracked items into status change messages.
// Translate is a pure function of its input and the configured table.
type Translator struct {
	verdicts VerdictTable
	format   string
	log      logx.Logger
}

// NewTranslator builds a Translator. An empty format selects DefaultMessageFormat.
func NewTranslator(verdicts VerdictTable, format string, log logx.Logger) *Translator {
	if verdicts.m == nil {
		verdicts = DefaultVerdicts()
	}
	if strings.TrimSpace(format) == "" {
		format = DefaultMessageFormat
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Translator{verdicts: verdicts, format: format, log: log}
}

// Parse validates a raw item and extracts its fields.
func (t *Translator) Parse(raw any) (Item, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Item{}, errkind.Wrap(errkind.ErrMalformedItem, "parse status",
			fmt.Sprintf("expected a JSON object, got %s", jsonKind(raw)), nil)
	}
	name, err := stringField(obj, KeyName)
	if err != nil {
		return Item{}, err
	}
	if strings.TrimSpace(name) == "" {
		return Item{}, errkind.Wrap(errkind.ErrMalformedItem, "parse status", fmt.Sprintf("key %q is empty", KeyName), nil)
	}
	status, err := stringField(obj, KeyStatus)
	if err != nil {
		return Item{}, err
	}
	return Item{Name: name, Status: status}, nil
}

// Translate validates raw and renders its message.
func (t *Translator) Translate(raw any) (Item, string, error) {
	it, err := t.Parse(raw)
	if err != nil {
		t.log.Warn("homework item rejected", logx.Err(err))
		return Item{}, "", err
	}
	msg, err := t.Format(it)
	if err != nil {
		t.log.Warn("homework status rejected", logx.String("homework", it.Name), logx.String("status", it.Status), logx.Err(err))
		return it, "", err
	}
	return it, msg, nil
}

// Format renders the message for an already parsed item.
func (t *Translator) Format(it Item) (string, error) {
	verdict, ok := t.verdicts.Lookup(it.Status)
	if !ok {
		return "", &UnknownStatusError{Name: it.Name, Status: it.Status}
	}
	return fmt.Sprintf(t.format, it.Name, verdict), nil
}

func stringField(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", errkind.Wrap(errkind.ErrMalformedItem, "parse status", fmt.Sprintf("key %q is missing", key), nil)
	}
	s, ok := v.(string)
	if !ok {
		return "", errkind.Wrap(errkind.ErrMalformedItem, "parse status",
			fmt.Sprintf("key %q must be a string, got %s", key, jsonKind(v)), nil)
	}
	return s, nil
}
