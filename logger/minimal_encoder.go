package logger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/heraldai/herald/sym"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// palette assigns ANSI colors by role rather than by color name, so the
// encoder reads the same regardless of which theme is active.
type palette struct {
	fg        string   // base message text
	timestamp string   // leading clock
	id        string   // job, run, and client IDs
	number    string   // counters and durations
	stage     string   // bracketed stage markers like [finalize]
	symbol    string   // chime glyphs
	comp      []string // component name rotation
	warn      string
	warnBg    string
	err       string
	errBg     string
}

// Gruvbox Dark: warm and muted.
var gruvbox = palette{
	fg:        "\x1b[38;5;223m", // soft cream (#ebdbb2)
	timestamp: "\x1b[38;5;108m", // muted cyan-green (#8ec07c)
	id:        "\x1b[38;5;109m", // soft blue (#83a598)
	number:    "\x1b[38;5;175m", // muted purple (#d3869b)
	stage:     "\x1b[38;5;208m", // warm orange (#fe8019)
	symbol:    "\x1b[38;5;142m", // muted green (#b8bb26)
	comp: []string{
		"\x1b[38;5;208m", // orange
		"\x1b[38;5;214m", // yellow
	},
	warn:   "\x1b[38;5;214m", // soft yellow (#fabd2f)
	warnBg: "\x1b[48;5;58m",
	err:    "\x1b[38;5;167m", // warm red (#fb4934)
	errBg:  "\x1b[48;5;88m",
}

// Everforest Dark: forest greens with a strong green presence.
var everforest = palette{
	fg:        "\x1b[38;5;223m", // soft beige (#d3c6aa)
	timestamp: "\x1b[38;5;107m", // mid green (#83c092)
	id:        "\x1b[38;5;109m", // blue-green (#7fbbb3)
	number:    "\x1b[38;5;108m", // bright green (#a7c080)
	stage:     "\x1b[38;5;208m", // autumn orange (#e69875)
	symbol:    "\x1b[38;5;108m", // bright green
	comp: []string{
		"\x1b[38;5;108m", // bright green
		"\x1b[38;5;65m",  // deep green (#7fbbb3)
		"\x1b[38;5;208m", // orange
	},
	warn:   "\x1b[38;5;179m", // soft yellow (#dbbc7f)
	warnBg: "\x1b[48;5;58m",
	err:    "\x1b[38;5;167m", // warm red (#e67e80)
	errBg:  "\x1b[48;5;52m",
}

// Current active theme (set by logger.Initialize from config)
var currentTheme = "everforest"

// SetTheme configures the color scheme for log output. Unknown theme
// names are ignored.
func SetTheme(theme string) {
	if theme == "everforest" || theme == "gruvbox" {
		currentTheme = theme
	}
}

func activePalette() palette {
	if currentTheme == "gruvbox" {
		return gruvbox
	}
	return everforest
}

// componentColor picks a stable color per component name so adjacent
// lines from one subsystem group visually.
func componentColor(pal palette, name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	return pal.comp[hash%len(pal.comp)]
}

// bracketRe matches bracketed contexts like [job:chk_x] or [finalize].
var bracketRe = regexp.MustCompile(`\[([^\]]+)\]`)

// colorizeMessage colors a message by its parts: bracketed job and run
// references, stage markers, chime glyphs, and the surrounding text.
func colorizeMessage(pal palette, msg string) string {
	var out strings.Builder
	last := 0

	for _, m := range bracketRe.FindAllStringSubmatchIndex(msg, -1) {
		writePlainText(&out, pal, msg[last:m[0]])

		color := pal.stage
		content := msg[m[2]:m[3]]
		if strings.HasPrefix(content, "job:") || strings.HasPrefix(content, "run:") {
			color = pal.id
		}
		out.WriteString(color)
		out.WriteString(msg[m[0]:m[1]])
		out.WriteString(colorReset)

		last = m[1]
	}
	writePlainText(&out, pal, msg[last:])

	return out.String()
}

// writePlainText writes unbracketed message text with glyphs accented.
func writePlainText(out *strings.Builder, pal palette, text string) {
	if text == "" {
		return
	}
	for _, glyph := range []string{sym.Chime, sym.ChimeOpen, sym.ChimeClose} {
		text = strings.ReplaceAll(text, glyph, pal.symbol+glyph+colorReset)
	}
	out.WriteString(pal.fg)
	out.WriteString(text)
	out.WriteString(colorReset)
}

// levelTag renders Warn and above as bold badges. Info carries no tag;
// the calm default line stays free of level noise.
func levelTag(pal palette, level zapcore.Level) string {
	switch {
	case level == zapcore.WarnLevel:
		return colorBold + pal.warnBg + pal.warn + "WARN" + colorReset
	case level >= zapcore.ErrorLevel:
		return colorBold + pal.errBg + pal.err + level.CapitalString() + colorReset
	}
	return ""
}

// abbreviateName shortens component names: server -> server,
// chime.dispatch -> c.dispatch.
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// minimalEncoder renders calm single-line console output:
//
//	13:04:35  c.dispatch  Job claimed  job_7f3a91
//
// The embedded JSON encoder supplies the ObjectEncoder surface zap
// requires; EncodeEntry is fully overridden.
type minimalEncoder struct {
	zapcore.Encoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: enc.Encoder.Clone()}
}

// symbolField returns the glyph attached by the symbol logging helpers,
// or "" when the entry carries none.
func symbolField(fields []zapcore.Field) string {
	for _, field := range fields {
		if field.Key == FieldSymbol && field.Type == zapcore.StringType {
			return field.String
		}
	}
	return ""
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	pal := activePalette()
	line := buffer.NewPool().Get()

	line.AppendString(pal.timestamp)
	line.AppendString(ent.Time.Format("15:04:05"))
	line.AppendString(colorReset)

	if tag := levelTag(pal, ent.Level); tag != "" {
		line.AppendString("  ")
		line.AppendString(tag)
	}

	if ent.LoggerName != "" {
		line.AppendString("  ")
		line.AppendString(componentColor(pal, ent.LoggerName))
		line.AppendString(abbreviateName(ent.LoggerName))
		line.AppendString(colorReset)
	}

	line.AppendString("  ")
	if glyph := symbolField(fields); glyph != "" {
		line.AppendString(pal.symbol)
		line.AppendString(glyph)
		line.AppendString(colorReset)
		line.AppendString(" ")
	}
	line.AppendString(colorizeMessage(pal, ent.Message))

	if rendered := extractFieldValues(pal, fields); rendered != "" {
		line.AppendString("  ")
		line.AppendString(rendered)
	}

	line.AppendString("\n")
	return line, nil
}

// extractFieldValues renders structured fields in a compact form.
// Known ID and timing fields get value-only formatting with theme colors;
// everything else falls back to key=value so no field is ever dropped.
// Input: {"job_id": "job_123", "due": 5, "claimed": 3}
// Output: "job_123 (5 due, 3 claimed)" (with colored IDs and numbers)
func extractFieldValues(pal palette, fields []zapcore.Field) string {
	// Resolve every field through a map encoder so all zap field types
	// (durations, times, arrays, binary) render without per-type handling.
	mapEnc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(mapEnc)
	}

	var values []string
	var dueCount, claimedCount string

	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		if field.Type == zapcore.SkipType || field.Key == "" || seen[field.Key] {
			continue
		}
		seen[field.Key] = true

		raw, ok := mapEnc.Fields[field.Key]
		if !ok {
			continue
		}
		val := fmt.Sprintf("%v", raw)

		switch field.Key {
		case FieldSymbol:
			// Rendered ahead of the message, not in the field list.
		case FieldJobID, FieldRunID, FieldTaskID, "client_id":
			// IDs in theme-aware color, value only
			if val != "" {
				values = append(values, pal.id+val+colorReset)
			}
		case "due":
			dueCount = val
		case "claimed":
			claimedCount = val
		case FieldDurationMS:
			if val != "" {
				values = append(values, pal.number+val+colorReset+"ms")
			}
		case FieldError:
			values = append(values, pal.err+"error="+val+colorReset)
		default:
			values = append(values, pal.fg+field.Key+"="+colorReset+val)
		}
	}

	// Special formatting for claim cycle stats
	if dueCount != "" && claimedCount != "" {
		values = append(values, pal.fg+"("+pal.number+dueCount+colorReset+pal.fg+" due, "+pal.number+claimedCount+colorReset+pal.fg+" claimed)"+colorReset)
	} else {
		if dueCount != "" {
			values = append(values, pal.fg+"due="+colorReset+dueCount)
		}
		if claimedCount != "" {
			values = append(values, pal.fg+"claimed="+colorReset+claimedCount)
		}
	}

	if len(values) == 0 {
		return ""
	}

	return strings.Join(values, " ")
}
