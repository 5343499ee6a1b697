package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/gridbook/internal/paths"
	"github.com/mesh-intelligence/gridbook/internal/rules"
	"github.com/mesh-intelligence/gridbook/internal/sheets"
	"github.com/mesh-intelligence/gridbook/internal/transfer"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "GRIDBOOK"
)

// Config keys.
const (
	keyBackend           = "backend"
	keyDataDir           = "data_dir"
	keyDSN               = "dsn"
	keyListenAddr        = "listen_addr"
	keyLogLevel          = "log_level"
	keyLogFormat         = "log_format"
	keyDefaultSheetName  = "default_sheet.name"
	keyDefaultSheetRows  = "default_sheet.rows"
	keyDefaultSheetCols  = "default_sheet.cols"
	keyImportMaxRows     = "import.max_rows"
	keyImportMaxColumns  = "import.max_columns"
	keyImportPreviewRows = "import.preview_rows"
	keyColumns           = "columns"
)

const defaultListenAddr = ":8080"

// Settings is the resolved configuration of one gridbook process.
type Settings struct {
	ConfigDir    string
	ConfigFile   string // empty when no config.yaml was found
	Store        types.Config
	ListenAddr   string
	LogLevel     string
	LogFormat    string
	DefaultSheet sheets.DefaultSheet
	Import       transfer.Limits
	Rules        *rules.Table
}

// PreviewDir is where staged imports live.
func (s *Settings) PreviewDir() string {
	return filepath.Join(s.Store.DataDir, transfer.PreviewDirName)
}

// columnConfig is one entry under the columns key.
type columnConfig struct {
	Type       string `mapstructure:"type" yaml:"type"`
	AllowBlank *bool  `mapstructure:"allow_blank" yaml:"allow_blank,omitempty"`
}

// fileConfig is the shape written to config.yaml by init.
type fileConfig struct {
	Backend      string                  `yaml:"backend"`
	DataDir      string                  `yaml:"data_dir,omitempty"`
	ListenAddr   string                  `yaml:"listen_addr"`
	LogLevel     string                  `yaml:"log_level"`
	LogFormat    string                  `yaml:"log_format"`
	DefaultSheet defaultSheetConfig      `yaml:"default_sheet"`
	Import       importConfig            `yaml:"import"`
	Columns      map[string]columnConfig `yaml:"columns"`
}

type defaultSheetConfig struct {
	Name string `yaml:"name"`
	Rows int    `yaml:"rows"`
	Cols int    `yaml:"cols"`
}

type importConfig struct {
	MaxRows     int `yaml:"max_rows"`
	MaxColumns  int `yaml:"max_columns"`
	PreviewRows int `yaml:"preview_rows"`
}

// defaultFileConfig is what init writes when no config.yaml exists.
func defaultFileConfig(dataDir string) fileConfig {
	return fileConfig{
		Backend:    types.BackendSQLite,
		DataDir:    dataDir,
		ListenAddr: defaultListenAddr,
		LogLevel:   "info",
		LogFormat:  "text",
		DefaultSheet: defaultSheetConfig{
			Name: types.DefaultSheetName,
			Rows: types.DefaultRowCount,
			Cols: types.DefaultColCount,
		},
		Import: importConfig{
			MaxRows:     transfer.DefaultMaxRows,
			MaxColumns:  transfer.DefaultMaxColumns,
			PreviewRows: transfer.DefaultPreviewRows,
		},
		Columns: map[string]columnConfig{
			"1": {Type: string(types.ColumnNumber)},
		},
	}
}

// writeConfigIfMissing creates config.yaml with defaults. An existing file
// is left alone. It reports whether a file was written.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	data, err := yaml.Marshal(defaultFileConfig(dataDir))
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# gridbook configuration. GRIDBOOK_<KEY> environment variables override these.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyBackend, types.BackendSQLite)
	v.SetDefault(keyListenAddr, defaultListenAddr)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keyDefaultSheetName, types.DefaultSheetName)
	v.SetDefault(keyDefaultSheetRows, types.DefaultRowCount)
	v.SetDefault(keyDefaultSheetCols, types.DefaultColCount)
	v.SetDefault(keyImportMaxRows, transfer.DefaultMaxRows)
	v.SetDefault(keyImportMaxColumns, transfer.DefaultMaxColumns)
	v.SetDefault(keyImportPreviewRows, transfer.DefaultPreviewRows)
	return v
}

// loadSettings reads .env from the working directory, then config.yaml from
// the config dir, then GRIDBOOK_* environment variables. Missing files are
// not errors.
func loadSettings(configDirFlag, dataDirFlag string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	configDir, err := paths.ResolveConfigDir(configDirFlag)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}

	v := newViper()
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return settingsFrom(v, configDir, dataDirFlag)
}

func settingsFrom(v *viper.Viper, configDir, dataDirFlag string) (*Settings, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(keyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	table, err := columnRules(v)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		ConfigDir:  configDir,
		ConfigFile: v.ConfigFileUsed(),
		Store: types.Config{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString(keyBackend))),
			DataDir: dataDir,
			DSN:     v.GetString(keyDSN),
		},
		ListenAddr: v.GetString(keyListenAddr),
		LogLevel:   v.GetString(keyLogLevel),
		LogFormat:  v.GetString(keyLogFormat),
		DefaultSheet: sheets.DefaultSheet{
			Name:     v.GetString(keyDefaultSheetName),
			RowCount: v.GetInt(keyDefaultSheetRows),
			ColCount: v.GetInt(keyDefaultSheetCols),
		},
		Import: transfer.Limits{
			MaxRows:     v.GetInt(keyImportMaxRows),
			MaxColumns:  v.GetInt(keyImportMaxColumns),
			PreviewRows: v.GetInt(keyImportPreviewRows),
		},
		Rules: table,
	}
	if err := s.Store.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// columnRules builds the rule table from the columns key. Keys are
// zero-based column indexes. Without the key the built-in table applies.
func columnRules(v *viper.Viper) (*rules.Table, error) {
	if !v.IsSet(keyColumns) {
		return rules.Default(), nil
	}
	var raw map[string]columnConfig
	if err := v.UnmarshalKey(keyColumns, &raw); err != nil {
		return nil, types.NewFieldError(keyColumns, "invalid column rules: %v", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[int]types.ColumnRule, len(raw))
	for _, k := range keys {
		col, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || col < 0 {
			return nil, types.NewFieldError(keyColumns, "column key %q is not a column index", k)
		}
		typ, err := types.ParseColumnType(raw[k].Type)
		if err != nil {
			return nil, types.NewFieldError(keyColumns, "column %s: unknown type %q", k, raw[k].Type)
		}
		rule := types.ColumnRule{Type: typ, AllowBlank: true}
		if raw[k].AllowBlank != nil {
			rule.AllowBlank = *raw[k].AllowBlank
		}
		out[col] = rule
	}
	return rules.New(out), nil
}

// newLogger builds the process logger from the log_level and log_format keys.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, types.NewFieldError(keyLogLevel, "unknown log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, types.NewFieldError(keyLogFormat, "unknown log format %q", format)
}

// columnView is one explicit column rule as printed by the config command.
type columnView struct {
	Column     int              `json:"column"`
	Type       types.ColumnType `json:"type"`
	AllowBlank bool             `json:"allow_blank"`
}

// settingsView is the config command's output. The DSN is left out.
type settingsView struct {
	ConfigDir  string       `json:"config_dir"`
	ConfigFile string       `json:"config_file"`
	Backend    string       `json:"backend"`
	DataDir    string       `json:"data_dir"`
	ListenAddr string       `json:"listen_addr"`
	Columns    []columnView `json:"columns"`
}

func (s *Settings) view() settingsView {
	cols := s.Rules.Columns()
	out := settingsView{
		ConfigDir:  s.ConfigDir,
		ConfigFile: s.ConfigFile,
		Backend:    s.Store.Backend,
		DataDir:    s.Store.DataDir,
		ListenAddr: s.ListenAddr,
		Columns:    make([]columnView, 0, len(cols)),
	}
	for _, c := range cols {
		r := s.Rules.Rule(c)
		out.Columns = append(out.Columns, columnView{Column: c, Type: r.Type, AllowBlank: r.AllowBlank})
	}
	return out
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration and column rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.settings.view()
			return a.emit(cmd.OutOrStdout(), v, func(w io.Writer) error {
				file := v.ConfigFile
				if file == "" {
					file = "(none)"
				}
				fmt.Fprintf(w, "config:  %s\n", file)
				fmt.Fprintf(w, "backend: %s\n", v.Backend)
				fmt.Fprintf(w, "data:    %s\n", v.DataDir)
				fmt.Fprintf(w, "listen:  %s\n", v.ListenAddr)

				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "COLUMN\tTYPE\tBLANK")
				fmt.Fprintln(tw, "------\t----\t-----")
				for _, c := range v.Columns {
					fmt.Fprintf(tw, "%d\t%s\t%t\n", c.Column, c.Type, c.AllowBlank)
				}
				return tw.Flush()
			})
		},
	}
}
