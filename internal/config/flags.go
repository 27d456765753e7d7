package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// Parse разбирает аргументы командной строки. Значения флагов перекрывают
// YAML (-config или CONFIG_PATH) и ENV.
func Parse(name string, args []string, output io.Writer) (*Config, error) {
	c, err := Load(configPath(args))
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.String("config", "", "path to YAML config (overrides CONFIG_PATH)")
	BindFlags(fs, c)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", models.ErrConfiguration, fs.Args())
	}
	return c, nil
}

// configPath достаёт значение -config до полного разбора флагов.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		a := strings.TrimLeft(args[i], "-")
		if a == "config" && i+1 < len(args) && strings.HasPrefix(args[i], "-") {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "config="); ok && strings.HasPrefix(args[i], "-") {
			return v
		}
	}
	return ""
}

// BindFlags регистрирует флаги коннектора; текущие значения c становятся значениями по умолчанию.
func BindFlags(fs *flag.FlagSet, c *Config) {
	fs.Var(actionFlag{c: c, a: ActionStreamIn}, "si", "read own part of -filename to stdout")
	fs.Var(actionFlag{c: c, a: ActionStreamOut}, "so", "write stdin (or -pipepath) to own part file")
	fs.Var(actionFlag{c: c, a: ActionStreamPipe}, "sop", "write named pipe -pipepath to own part file")
	fs.Var(actionFlag{c: c, a: ActionMerge}, "mf", "merge part files into -filename (node 0 only)")

	fs.StringVar(&c.Host, "host", c.Host, "namenode host")
	fs.IntVar(&c.Port, "port", c.Port, "namenode port (0 = transport default)")
	fs.StringVar(&c.User, "hdfsuser", c.User, "HDFS user name")
	fs.Var((*listValue)(&c.NameNodes), "namenodes", "comma separated standby namenodes host:port")
	fs.Var((*transportValue)(&c.Transport), "transport", "native | webhdfs")
	fs.IntVar(&c.MaxRetry, "whdfsretrymax", c.MaxRetry, "extra attempts for failed webhdfs requests")

	fs.StringVar(&c.FileName, "filename", c.FileName, "HDFS file path")
	fs.Var(formatValue{c: c}, "format", "FLAT | CSV | XML, optionally with (options)")
	fs.Int64Var(&c.RecordLength, "reclen", c.RecordLength, "FLAT record length")
	fs.Int64Var(&c.MaxLength, "maxlen", c.MaxLength, "max CSV record length (0 = unbounded)")
	fs.StringVar(&c.RowTag, "rowtag", c.RowTag, "XML row path, e.g. Dataset/Row")
	fs.StringVar(&c.HeaderText, "headertext", c.HeaderText, "XML header (derived from -rowtag when empty)")
	fs.StringVar(&c.FooterText, "footertext", c.FooterText, "XML footer (derived from -rowtag when empty)")
	fs.StringVar(&c.Terminator, "terminator", c.Terminator, "CSV record terminator, backslash escapes allowed")
	fs.StringVar(&c.Quote, "quote", c.Quote, "CSV quote character, backslash escapes allowed")
	fs.Var((*intBool)(&c.OutputTerminator), "outputterminator", "1 to write terminators after records")

	fs.IntVar(&c.BufferSize, "buffsize", c.BufferSize, "read window size in bytes")
	fs.Int64Var(&c.FlushThreshold, "flushsize", c.FlushThreshold, "merge flush threshold in bytes")
	fs.IntVar(&c.Replication, "hdfsfilereplication", c.Replication, "replication of written files")
	fs.Int64Var(&c.BlockSize, "blocksize", c.BlockSize, "block size of written files (0 = server default)")
	fs.Var((*intBool)(&c.CleanMerge), "cleanmerge", "1 to delete parts after merge")
	fs.StringVar(&c.PipePath, "pipepath", c.PipePath, "source file or named pipe for -so/-sop")

	fs.Var((*uint32Value)(&c.NodeID), "nodeid", "0-based id of this node")
	fs.Var((*uint32Value)(&c.ClusterCount), "clustercount", "number of nodes")
	fs.StringVar(&c.WUID, "wuid", c.WUID, "workunit id, attached to logs")

	fs.StringVar(&c.JournalDSN, "journaldsn", c.JournalDSN, "merge journal DSN (memory:// or postgres://)")
	fs.StringVar(&c.MetricsAddr, "metricsaddr", c.MetricsAddr, "serve /metrics on this address")
	fs.StringVar(&c.MetricsPushURL, "metricspush", c.MetricsPushURL, "Pushgateway URL to push metrics at exit")
	fs.Var((*intBool)(&c.Progress), "progress", "1 to draw progress on stderr")
	fs.Var((*intBool)(&c.Verbose), "verbose", "1 for debug logging")
}

// actionFlag флаг без значения, выбирающий действие.
type actionFlag struct {
	c *Config
	a Action
}

func (f actionFlag) String() string {
	if f.c != nil && f.c.Action == f.a {
		return "true"
	}
	return "false"
}

func (f actionFlag) Set(v string) error {
	on, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	if on {
		f.c.Action = f.a
	}
	return nil
}

func (actionFlag) IsBoolFlag() bool { return true }

// intBool принимает 0/1 отдельным аргументом: -cleanmerge 1.
type intBool bool

func (b *intBool) String() string {
	if b != nil && *b {
		return "1"
	}
	return "0"
}

func (b *intBool) Set(v string) error {
	on, err := strconv.ParseBool(v)
	if err != nil {
		n, nerr := strconv.Atoi(v)
		if nerr != nil {
			return err
		}
		on = n != 0
	}
	*b = intBool(on)
	return nil
}

type uint32Value uint32

func (u *uint32Value) String() string {
	if u == nil {
		return "0"
	}
	return strconv.FormatUint(uint64(*u), 10)
}

func (u *uint32Value) Set(v string) error {
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return err
	}
	*u = uint32Value(n)
	return nil
}

type listValue []string

func (l *listValue) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *listValue) Set(v string) error {
	*l = splitComma(v)
	return nil
}

type transportValue Transport

func (t *transportValue) String() string {
	if t == nil {
		return ""
	}
	return string(*t)
}

func (t *transportValue) Set(v string) error {
	switch tr := Transport(strings.ToLower(v)); tr {
	case TransportNative, TransportWebHDFS:
		*t = transportValue(tr)
		return nil
	default:
		return fmt.Errorf("unknown transport %q", v)
	}
}

type formatValue struct {
	c *Config
}

func (f formatValue) String() string {
	if f.c == nil {
		return ""
	}
	return string(f.c.Format)
}

func (f formatValue) Set(v string) error {
	f.c.Format, f.c.FormatOptions = ParseFormat(v)
	return nil
}
