package main

import (
	"flag"
	"fmt"
	"os"

	"go-mvindex/config"
	"go-mvindex/pkg/nullindex"
	"go-mvindex/pkg/rid"
	"go-mvindex/util/logger"

	"github.com/pkg/errors"
)

const usage = `usage: go-mvindex [flags] get | put RID... | remove RID...

RIDs are written as #cluster:position.

flags:
`

func main() {
	configs := config.New()

	name := flag.String("name", "index", "index name, the null key file is <dir>/<name>.nbt")
	flag.StringVar(&configs.StorageConfig.Dir, "dir", configs.StorageConfig.Dir, "directory of index files")
	flag.IntVar(&configs.StorageConfig.PageSize, "page-size", configs.StorageConfig.PageSize, "page size in bytes")
	flag.IntVar(&configs.StorageConfig.CacheSize, "cache-size", configs.StorageConfig.CacheSize, "count of cached pages")
	flag.StringVar(&configs.LoggerConfig.Level, "log-level", configs.LoggerConfig.Level, "log level")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := configs.Validate(); err != nil {
		fatal(err)
	}
	if err := logger.SetLevel(configs.LoggerConfig.Level); err != nil {
		fatal(err)
	}

	idx, err := nullindex.Open(*name, configs.StorageConfig)
	if err != nil {
		fatal(err)
	}

	runErr := run(idx, flag.Arg(0), flag.Args()[1:])
	if err := idx.Close(); err != nil {
		logger.L.Errorf("error on closing index: %v", err)
	}
	if runErr != nil {
		fatal(runErr)
	}
}

func run(idx *nullindex.NullIndex, command string, args []string) error {
	switch command {
	case "get":
		values, err := idx.Get()
		if err != nil {
			return err
		}
		for _, v := range values {
			fmt.Println(v)
		}
		return nil

	case "put":
		values, err := parseRIDs(args)
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := idx.Put(v); err != nil {
				return err
			}
		}
		return nil

	case "remove":
		values, err := parseRIDs(args)
		if err != nil {
			return err
		}
		for _, v := range values {
			ok, err := idx.Remove(v)
			if err != nil {
				return err
			}
			if !ok {
				logger.L.Warnf("%v not found", v)
			}
		}
		return nil
	}

	return errors.Errorf("unknown command '%s'", command)
}

func parseRIDs(args []string) ([]rid.RID, error) {
	if len(args) == 0 {
		return nil, errors.New("no rids given")
	}

	values := make([]rid.RID, 0, len(args))
	for _, arg := range args {
		v, err := rid.Parse(arg)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func fatal(val interface{}) {
	fmt.Fprintln(os.Stderr, val)
	os.Exit(1)
}
