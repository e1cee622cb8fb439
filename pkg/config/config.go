package config

import "path/filepath"

// Config is the root application configuration.
type Config struct {
	Data DataConfig `yaml:"data"`
	ETL  ETLConfig  `yaml:"etl"`
	Quiz QuizConfig `yaml:"quiz"`
	Log  LogConfig  `yaml:"log"`
}

// DataConfig locates the normalized CSV and the SQLite snapshot.
type DataConfig struct {
	CSVDir  string `yaml:"csv_dir"  env:"APRENDO_CSV_DIR"  env-default:"./"               validate:"required"`
	CSVFile string `yaml:"csv_file" env:"APRENDO_CSV_FILE" env-default:"translations.csv" validate:"required"`
	DBPath  string `yaml:"db_path"  env:"APRENDO_DB_PATH"  env-default:"aprendo.db"       validate:"required"`
}

// CSVPath is the normalized translations file the store is loaded from.
func (d DataConfig) CSVPath() string {
	return filepath.Join(d.CSVDir, d.CSVFile)
}

// ETLConfig holds normalization settings.
type ETLConfig struct {
	SourceLabel string `yaml:"source_label" env:"APRENDO_SOURCE_LABEL" env-default:"Spanish"   validate:"required"`
	TargetLabel string `yaml:"target_label" env:"APRENDO_TARGET_LABEL" env-default:"Bulgarian" validate:"required"`
	SourceLang  string `yaml:"source_lang"  env:"APRENDO_SOURCE_LANG"  env-default:"es"        validate:"required"`
	TargetLang  string `yaml:"target_lang"  env:"APRENDO_TARGET_LANG"  env-default:"bg"        validate:"required,nefield=SourceLang"`
	Unmatched   string `yaml:"unmatched"    env:"APRENDO_UNMATCHED"    env-default:"drop"      validate:"oneof=drop keep"`
	Workers     int    `yaml:"workers"      env:"APRENDO_WORKERS"      env-default:"4"         validate:"min=1"`
	BatchSize   int    `yaml:"batch_size"   env:"APRENDO_BATCH_SIZE"   env-default:"50"        validate:"min=1"`
}

// QuizConfig holds sampling settings.
type QuizConfig struct {
	// Seed makes sampling reproducible. 0 seeds randomly.
	Seed      uint64 `yaml:"seed"      env:"APRENDO_QUIZ_SEED"`
	Direction string `yaml:"direction" env:"APRENDO_QUIZ_DIRECTION" env-default:"es-bg" validate:"oneof=es-bg bg-es"`
	Ranges    string `yaml:"ranges"    env:"APRENDO_QUIZ_RANGES"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text" validate:"oneof=text json logfmt"`
}
