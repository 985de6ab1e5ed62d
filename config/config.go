// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//nolint:gochecknoinits // Because we load the configs once, for the whole runtime.
func init() {
	mustLoadApplicationConfig()
	dotEnvPath := `.env`
	for i := 0; i < 5; i++ {
		if err := godotenv.Load(dotEnvPath); err == nil {
			break
		}
		dotEnvPath = fmt.Sprintf(`../%v`, dotEnvPath)
	}
}

// MustLoadFromKey unmarshals the sub-tree under key of the first
// application.yaml found into cfg, panicking if the key cannot be decoded.
func MustLoadFromKey(key string, cfg any) {
	if err := viper.UnmarshalKey(key, cfg); err != nil {
		log.Panic(errors.Wrapf(err, "failed to load config by key %q", key))
	}
}

func mustLoadApplicationConfig() {
	for _, configFile := range applicationConfigCandidates() {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err == nil {
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Panic(err)
		}
	}

	log.Panic(errors.New("could not find any application.yaml files"))
}

// applicationConfigCandidates probes, in order: an explicit CONFIG_FILE env
// override, the working directory (plus its .testdata), the executable's
// directory, and finally the module root relative to this file (which covers
// `go test` runs from any package directory).
func applicationConfigCandidates() []string {
	var candidates []string
	if override := os.Getenv("CONFIG_FILE"); override != "" {
		candidates = append(candidates, override)
	}

	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(wd, ".testdata"), wd)
	}
	if bin, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(bin))
	}
	//nolint:dogsled // Because those 3 blank identifiers are useless.
	_, callerFile, _, _ := runtime.Caller(0)
	dirs = append(dirs, filepath.Join(filepath.Dir(callerFile), ".."), filepath.Join(filepath.Dir(callerFile), "..", ".."))

	for _, dir := range dirs {
		pattern := filepath.Join(dir, "application.yaml")
		if found, err := filepath.Glob(pattern); err != nil {
			log.Println(errors.Wrapf(err, "glob failed for [%v]", pattern))
		} else {
			candidates = append(candidates, found...)
		}
	}

	return candidates
}
