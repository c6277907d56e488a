/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command schemacheck loads entity descriptors, builds every mapper and
// prints the normalized schemas as YAML.
//
//	schemacheck -config entitymapper.yaml -schema extra.yaml
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/suparena/entitymapper"
	"github.com/suparena/entitymapper/config"
	"github.com/suparena/entitymapper/datamapper"
	"github.com/suparena/entitymapper/logging"
	"github.com/suparena/entitymapper/processor"
	"github.com/suparena/entitymapper/valuetype"
)

var (
	configFlag  = flag.String("config", "", "Path to the entitymapper config file")
	schemaFlag  = flag.String("schema", "", "Comma separated descriptor files, added to the configured ones")
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
)

type fieldReport struct {
	Name                string `yaml:"name"`
	valuetype.Attribute `yaml:",inline"`
}

type classReport struct {
	Class      string        `yaml:"class"`
	Service    string        `yaml:"service,omitempty"`
	Collection string        `yaml:"collection,omitempty"`
	Readonly   bool          `yaml:"readonly"`
	Cache      string        `yaml:"cache_service,omitempty"`
	PrimaryKey []string      `yaml:"primary_key"`
	Fields     []fieldReport `yaml:"fields"`
}

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := entitymapper.GetVersionInfo()
		fmt.Printf("entitymapper schemacheck version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "schemacheck: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer) error {
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}

	files := append([]string(nil), cfg.Schemas.Files...)
	for _, f := range strings.Split(*schemaFlag, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no descriptor files given")
	}

	env := datamapper.NewEnvironment(datamapper.WithLogger(logging.New(cfg.Logging, entitymapper.Version)))
	if err := processor.Register(env, files...); err != nil {
		return err
	}
	return check(w, env)
}

// check builds every registered mapper and writes one YAML document per
// class. All failing classes are reported.
func check(w io.Writer, env *datamapper.Environment) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	var failed []string
	for _, class := range env.Classes() {
		m, err := env.Mapper(class)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", class, err)
			failed = append(failed, class)
			continue
		}
		if err := enc.Encode(report(m)); err != nil {
			return fmt.Errorf("encoding %s: %w", class, err)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d invalid classes: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func report(m *datamapper.Mapper) classReport {
	opts := m.Options()
	r := classReport{
		Class:      m.Class(),
		Service:    opts.Service,
		Collection: opts.Collection,
		Readonly:   m.IsReadonly(),
		Cache:      opts.CacheService,
		PrimaryKey: m.PrimaryKey(),
	}
	for _, f := range m.Schema().Fields() {
		r.Fields = append(r.Fields, fieldReport{Name: f.Name, Attribute: f.Attribute})
	}
	return r
}
