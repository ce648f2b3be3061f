package main

import "time"

type Config struct {
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=5000"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	ActivityTimeout time.Duration `env:"ACTIVITY_TIMEOUT,default=10s"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=15s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
}
