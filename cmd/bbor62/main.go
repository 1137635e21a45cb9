// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/SnellerInc/bbor62"
	"github.com/SnellerInc/bbor62/compare"
	"github.com/SnellerInc/bbor62/ngram"
)

var (
	dashv      bool
	dashh      bool
	dashc      string
	dashn      int
	dashk      int
	dashseed   int
	stream     bool
	fields     bool
	noCompress bool
	noKeymap   bool
)

func init() {
	pflag.BoolVarP(&dashv, "verbose", "v", false, "verbose")
	pflag.BoolVarP(&dashh, "help", "h", false, "show usage help")
	pflag.StringVarP(&dashc, "config", "c", "", "YAML or JSON options file")
	pflag.IntVarP(&dashn, "len", "n", 2, "n-gram length for ngrams")
	pflag.IntVarP(&dashk, "top", "k", 20, "number of n-grams to print")
	pflag.IntVar(&dashseed, "seed", 0, "print options with a seed of this many entries suggested by ngrams")
	pflag.BoolVar(&stream, "stream", false, "share dictionaries across the values of one input")
	pflag.BoolVar(&fields, "fields", false, "count field names in ngrams")
	pflag.BoolVar(&noCompress, "no-compress", false, "disable string compression")
	pflag.BoolVar(&noKeymap, "no-keymap", false, "disable field name mapping")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	if dashv {
		fmt.Fprintf(os.Stderr, f+"\n", args...)
	}
}

func options() bbor62.Options {
	o := bbor62.DefaultOptions()
	if dashc != "" {
		buf, err := os.ReadFile(dashc)
		if err != nil {
			exitf("%s", err)
		}
		o, err = bbor62.ParseOptions(buf)
		if err != nil {
			exitf("%s: %s", dashc, err)
		}
	}
	if noCompress {
		o.StringCompression = false
	}
	if noKeymap {
		o.KeyMapping = false
	}
	return o
}

func config() *bbor62.Config {
	c, err := options().Config()
	if err != nil {
		exitf("%s", err)
	}
	logf("config fingerprint %016x", c.Fingerprint())
	return c
}

func open(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

// readJSON reads every JSON value in the named
// file; comments and trailing commas are allowed.
func readJSON(name string) []any {
	f, err := open(name)
	if err != nil {
		exitf("%s", err)
	}
	buf, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		exitf("%s: %s", name, err)
	}
	d := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(buf)))
	var out []any
	for {
		v, err := bbor62.FromJSON(d)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			exitf("%s: %s", name, err)
		}
		out = append(out, v)
	}
	logf("%s: %d values", name, len(out))
	return out
}

func encode(cfg *bbor62.Config, files []string) {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	c := bbor62.NewCodec(cfg)
	c.Logf = logf
	for _, name := range files {
		for _, v := range readJSON(name) {
			if !stream {
				c.Reset()
			}
			s, err := c.Encode(v)
			if err != nil {
				exitf("%s: %s", name, err)
			}
			fmt.Fprintln(w, s)
		}
	}
}

func decodeOne(c *bbor62.Codec, s string) {
	v, err := c.Decode(s)
	if err != nil {
		exitf("decoding %q: %s", s, err)
	}
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitf("%s", err)
	}
	os.Stdout.Write(append(buf, '\n'))
}

func decode(cfg *bbor62.Config, args []string) {
	c := bbor62.NewCodec(cfg)
	c.Logf = logf
	if len(args) > 0 && args[0] != "-" {
		for _, s := range args {
			if !stream {
				c.Reset()
			}
			decodeOne(c, s)
		}
		return
	}
	scan := bufio.NewScanner(os.Stdin)
	scan.Buffer(nil, 64*1024*1024)
	for scan.Scan() {
		s := strings.TrimSpace(scan.Text())
		if s == "" {
			continue
		}
		if !stream {
			c.Reset()
		}
		decodeOne(c, s)
	}
	if err := scan.Err(); err != nil {
		exitf("%s", err)
	}
}

func compareFiles(cfg *bbor62.Config, files []string) {
	r := &compare.Runner{Config: cfg, Logf: logf}
	for _, name := range files {
		for i, v := range readJSON(name) {
			rep, err := r.Run(v)
			if err != nil {
				exitf("%s: %s", name, err)
			}
			fmt.Printf("%s[%d]:\n", name, i)
			if _, err := rep.WriteTo(os.Stdout); err != nil {
				exitf("%s", err)
			}
		}
	}
}

func ngrams(files []string) {
	c := &ngram.Counter{Fields: fields}
	for _, name := range files {
		for _, v := range readJSON(name) {
			c.Add(v)
		}
	}
	logf("%d strings, %d distinct %d-grams", c.Strings(), c.Distinct(dashn), dashn)
	if dashseed > 0 {
		o := options()
		o.LZW.Seed = ngram.SuggestSeed(c, dashseed)
		if _, err := o.Config(); err != nil {
			exitf("suggested seed: %s", err)
		}
		buf, err := bbor62.MarshalOptions(o)
		if err != nil {
			exitf("%s", err)
		}
		os.Stdout.Write(buf)
		return
	}
	for _, g := range c.Top(dashn, dashk) {
		fmt.Printf("%8d %q\n", g.Count, g.Text)
	}
}

func inputs(args []string) []string {
	if len(args) == 0 {
		return []string{"-"}
	}
	return args
}

func main() {
	pflag.Parse()
	args := pflag.Args()
	if len(args) == 0 || dashh {
		fmt.Fprintf(os.Stderr, "usage:\n")
		fmt.Fprintf(os.Stderr, "    %s [-c <options.yaml>] encode <file.json|->...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        encode JSON values, one output line per value\n")
		fmt.Fprintf(os.Stderr, "    %s [-c <options.yaml>] decode <string|->...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        decode strings into indented JSON\n")
		fmt.Fprintf(os.Stderr, "    %s [-c <options.yaml>] compare <file.json|->...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        compare the size of each value across encodings\n")
		fmt.Fprintf(os.Stderr, "    %s [-n <len>] [-k <count>] [--seed <size>] ngrams <file.json|->...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        list frequent n-grams or suggest a seed dictionary\n")
		fmt.Fprintf(os.Stderr, "    %s [-c <options.yaml>] fingerprint\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        print the configuration fingerprint\n")
		fmt.Fprintf(os.Stderr, "flag usage:\n")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	switch args[0] {
	case "encode":
		encode(config(), inputs(args[1:]))
	case "decode":
		decode(config(), args[1:])
	case "compare":
		compareFiles(config(), inputs(args[1:]))
	case "ngrams":
		if dashn < 1 || dashn > ngram.MaxN {
			exitf("-n must be between 1 and %d", ngram.MaxN)
		}
		ngrams(inputs(args[1:]))
	case "fingerprint":
		if len(args) != 1 {
			exitf("usage: fingerprint")
		}
		fmt.Printf("%016x\n", config().Fingerprint())
	default:
		exitf("unknown command %q", args[0])
	}
}
