// Package config собирает конфигурацию коннектора: YAML-файл, затем ENV, затем флаги командной строки.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// Action что делает процесс.
type Action string

const (
	ActionNone       Action = ""
	ActionStreamIn   Action = "stream-in"       // -si: вычитать свой диапазон файла HDFS в stdout
	ActionStreamOut  Action = "stream-out"      // -so: записать stdin (или -pipepath) в свой part-файл
	ActionStreamPipe Action = "stream-out-pipe" // -sop: как -so, источник именованный pipe
	ActionMerge      Action = "merge"           // -mf: склеить part-файлы в целевой файл
)

// Format форма записей во входном файле.
type Format string

const (
	FormatFlat Format = "FLAT"
	FormatCSV  Format = "CSV"
	FormatXML  Format = "XML"
)

// Transport способ доступа к HDFS.
type Transport string

const (
	TransportNative  Transport = "native"
	TransportWebHDFS Transport = "webhdfs"
)

// Значения по умолчанию.
const (
	DefaultBufferSize  = 100 * 1024
	DefaultHost        = "localhost"
	DefaultNativePort  = 8020
	DefaultWebHDFSPort = 50070
	DefaultRowTag      = "Row"
	DefaultTerminator  = `\n`
	DefaultQuote       = `'`
	DefaultConfigEnv   = "CONFIG_PATH"
)

type Config struct {
	Action Action `yaml:"-" json:"action"`

	Host      string    `yaml:"host" json:"host"`
	Port      int       `yaml:"port" json:"port"`
	User      string    `yaml:"user" json:"user"`
	NameNodes []string  `yaml:"namenodes" json:"namenodes"`
	Transport Transport `yaml:"transport" json:"transport"`
	MaxRetry  int       `yaml:"max_retry" json:"max_retry"`

	FileName string `yaml:"filename" json:"filename"`
	Format   Format `yaml:"format" json:"format"`
	// FormatOptions текст в скобках после формата: CSV(...). Только для диагностики.
	FormatOptions string `yaml:"format_options" json:"format_options"`
	RecordLength  int64  `yaml:"record_length" json:"record_length"`
	// MaxLength максимальная длина записи; поиск первой границы ограничен 10 такими длинами.
	MaxLength int64 `yaml:"max_length" json:"max_length"`

	RowTag     string `yaml:"row_tag" json:"row_tag"`
	HeaderText string `yaml:"header_text" json:"header_text"`
	FooterText string `yaml:"footer_text" json:"footer_text"`
	// Terminator и Quote хранятся как введены; ExpandEscapes раскрывает \n, \t и т.п.
	Terminator       string `yaml:"terminator" json:"terminator"`
	Quote            string `yaml:"quote" json:"quote"`
	OutputTerminator bool   `yaml:"output_terminator" json:"output_terminator"`

	BufferSize     int    `yaml:"buffer_size" json:"buffer_size"`
	FlushThreshold int64  `yaml:"flush_threshold" json:"flush_threshold"`
	Replication    int    `yaml:"replication" json:"replication"`
	BlockSize      int64  `yaml:"block_size" json:"block_size"`
	CleanMerge     bool   `yaml:"clean_merge" json:"clean_merge"`
	PipePath       string `yaml:"pipe_path" json:"pipe_path"`

	NodeID       uint32 `yaml:"node_id" json:"node_id"`
	ClusterCount uint32 `yaml:"cluster_count" json:"cluster_count"`
	WUID         string `yaml:"wuid" json:"wuid"`

	JournalDSN     string `yaml:"journal_dsn" json:"journal_dsn"`
	MetricsAddr    string `yaml:"metrics_addr" json:"metrics_addr"`
	MetricsPushURL string `yaml:"metrics_push_url" json:"metrics_push_url"`
	Progress       bool   `yaml:"progress" json:"progress"`
	Verbose        bool   `yaml:"verbose" json:"verbose"`
}

// Default конфигурация без файла, ENV и флагов.
func Default() *Config {
	return &Config{
		Host:             DefaultHost,
		Transport:        TransportNative,
		MaxRetry:         1,
		RowTag:           DefaultRowTag,
		Terminator:       DefaultTerminator,
		Quote:            DefaultQuote,
		OutputTerminator: true,
		BufferSize:       DefaultBufferSize,
		FlushThreshold:   DefaultBufferSize * 10,
		Replication:      1,
	}
}

// Load читает YAML из path (или CONFIG_PATH) поверх умолчаний и применяет ENV-переопределения.
// Отсутствие пути не ошибка: коннектор настраивается и одними флагами.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		path = os.Getenv(DefaultConfigEnv)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read config: %v", models.ErrConfiguration, err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("%w: parse config %s: %v", models.ErrConfiguration, path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

// ENV override
func (c *Config) applyEnv() error {
	if v := os.Getenv("HDFS_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("HDFS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: HDFS_PORT=%q", models.ErrConfiguration, v)
		}
		c.Port = port
	}
	if v := os.Getenv("HDFS_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("HDFS_NAMENODES"); v != "" {
		c.NameNodes = splitComma(v)
	}
	if v := os.Getenv("HDFS_TRANSPORT"); v != "" {
		c.Transport = Transport(strings.ToLower(v))
	}
	if v := os.Getenv("JOURNAL_DSN"); v != "" {
		c.JournalDSN = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("METRICS_PUSH_URL"); v != "" {
		c.MetricsPushURL = v
	}
	return nil
}

// Addresses адреса NameNode host:port; первым идёт основной.
func (c *Config) Addresses() []string {
	out := []string{fmt.Sprintf("%s:%d", c.Host, c.EffectivePort())}
	for _, nn := range c.NameNodes {
		if nn != out[0] {
			out = append(out, nn)
		}
	}
	return out
}

// EffectivePort порт с учётом транспорта, если явно не задан.
func (c *Config) EffectivePort() int {
	if c.Port > 0 {
		return c.Port
	}
	if c.Transport == TransportWebHDFS {
		return DefaultWebHDFSPort
	}
	return DefaultNativePort
}

// TerminatorBytes терминатор записи с раскрытыми escape-последовательностями.
func (c *Config) TerminatorBytes() []byte {
	return []byte(ExpandEscapes(c.Terminator))
}

// QuoteBytes символ кавычки с раскрытыми escape-последовательностями.
func (c *Config) QuoteBytes() []byte {
	return []byte(ExpandEscapes(c.Quote))
}

// MaxScanLength предел поиска первой границы CSV в байтах.
func (c *Config) MaxScanLength() int64 {
	return c.MaxLength * 10
}

// Validate проверяет согласованность параметров для выбранного действия.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Action {
	case ActionStreamIn, ActionStreamOut, ActionStreamPipe, ActionMerge:
	case ActionNone:
		add("no action given (-si, -so, -sop or -mf)")
	default:
		add("unknown action %q", c.Action)
	}
	if strings.TrimSpace(c.FileName) == "" {
		add("filename is required")
	}
	if c.ClusterCount == 0 {
		add("invalid cluster count %d", c.ClusterCount)
	} else if c.NodeID >= c.ClusterCount {
		add("invalid node id %d for cluster of %d", c.NodeID, c.ClusterCount)
	}
	switch c.Transport {
	case TransportNative, TransportWebHDFS:
	default:
		add("unknown transport %q", c.Transport)
	}
	if strings.TrimSpace(c.Host) == "" {
		add("host is required")
	}
	if c.BufferSize <= 0 {
		add("invalid buffer size %d", c.BufferSize)
	}
	if c.MaxRetry < 0 {
		add("invalid retry count %d", c.MaxRetry)
	}

	switch c.Action {
	case ActionStreamIn:
		switch c.Format {
		case FormatFlat:
			if c.RecordLength <= 0 {
				add("FLAT format requires record length > 0")
			}
		case FormatCSV:
			if len(c.TerminatorBytes()) == 0 {
				add("CSV format requires a record terminator")
			}
		case FormatXML:
			if strings.Trim(c.RowTag, "/ ") == "" {
				add("XML format requires a row tag")
			}
		default:
			add("unknown format %q", c.Format)
		}
	case ActionMerge:
		if c.FlushThreshold <= 0 {
			add("invalid flush threshold %d", c.FlushThreshold)
		}
	case ActionStreamPipe:
		if c.PipePath == "" {
			add("pipe path is required for -sop")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", models.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// ParseFormat разбирает "CSV(opts)" на имя формата и опции.
func ParseFormat(s string) (Format, string) {
	name, opts, _ := strings.Cut(s, "(")
	if i := strings.LastIndexByte(opts, ')'); i >= 0 {
		opts = opts[:i]
	}
	return Format(strings.ToUpper(strings.TrimSpace(name))), opts
}

// ExpandEscapes раскрывает \n \r \t \b \v \f \\ \' \" \0 \a \e.
// Неизвестная последовательность выбрасывается целиком.
func ExpandEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i == len(s) {
			break
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'v':
			b.WriteByte('\v')
		case 'f':
			b.WriteByte('\f')
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case '0':
			b.WriteByte(0)
		case 'a':
			b.WriteByte('\a')
		case 'e':
			b.WriteByte(0x1b)
		}
	}
	return b.String()
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
