package cmd

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/DCSO/hostnamer/db"
	"github.com/DCSO/hostnamer/input"
	"github.com/DCSO/hostnamer/util"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func setupLogging() (io.Closer, error) {
	var closer io.Closer = nopCloser{}
	logfilename := viper.GetString("logging.file")
	if len(logfilename) > 0 {
		log.Println("Switching to log file", logfilename)
		file, err := os.OpenFile(logfilename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err != nil {
			return nil, err
		}
		closer = file
		log.SetFormatter(&log.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
		log.SetOutput(file)
	}
	if viper.GetBool("logging.json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
		log.Info("verbose log output enabled")
	}
	return closer, nil
}

func makeSubmitter(url, exchange string, dummyMode, verbose bool) (util.StatsSubmitter, error) {
	if dummyMode {
		return util.MakeDummySubmitter()
	}
	return util.MakeAMQPSubmitter(url, exchange, verbose)
}

func makeHostNamer() (util.HostNamer, error) {
	var hn util.HostNamer
	timeout := viper.GetDuration("lookup.timeout")
	if server := viper.GetString("lookup.server"); server != "" {
		hn = util.NewHostNamerDNS(server, viper.GetString("lookup.network"), timeout)
		log.WithFields(log.Fields{
			"server": server,
		}).Info("using direct PTR lookups")
	} else {
		hn = util.NewHostNamerRDNS(timeout, viper.GetDuration("lookup.negative-ttl"))
		log.Info("using system resolver")
	}

	privateOnly := viper.GetBool("lookup.private-only")
	ranges := viper.GetStringSlice("lookup.allow-ranges")
	bloomFile := viper.GetString("lookup.exclude-bloom")
	if !privateOnly && len(ranges) == 0 && bloomFile == "" {
		return hn, nil
	}

	fhn := util.MakeHostNamerFiltered(hn)
	if privateOnly {
		ranges = append(ranges, util.PrivateRanges...)
	}
	if len(ranges) > 0 {
		if err := fhn.AllowRanges(ranges); err != nil {
			return nil, err
		}
	}
	if bloomFile != "" {
		if err := fhn.ExcludeFromBloomFile(bloomFile, viper.GetBool("lookup.exclude-bloom-zipped")); err != nil {
			return nil, err
		}
	}
	return fhn, nil
}

func makeSlurper(ctx context.Context) (db.Slurper, error) {
	if !viper.GetBool("database.enable") {
		log.Debug("database not in use")
		return &db.DummySlurper{}, nil
	}
	dbHost := viper.GetString("database.host")
	dbDatabase := viper.GetString("database.database")
	dbUser := viper.GetString("database.user")
	dbPassword := viper.GetString("database.password")
	chunkSize := viper.GetInt("chunksize")
	if viper.GetBool("database.mongo") {
		return db.MakeMongoSlurper(dbHost, dbDatabase, dbUser, dbPassword,
			chunkSize, viper.GetInt64("database.maxsize")), nil
	}
	return db.MakePostgresSlurper(ctx, dbHost, dbDatabase, dbUser, dbPassword,
		viper.GetDuration("database.retention"), chunkSize)
}

func makeInputs(addrChan chan string, pse *util.PerformanceStatsEncoder) ([]input.Input, *input.StdinInput, error) {
	inputs := make([]input.Input, 0)
	var stdin *input.StdinInput

	if inputRedis := viper.GetString("input.redis.server"); inputRedis != "" {
		ri, err := input.MakeRedisInput(inputRedis, addrChan, viper.GetInt("chunksize"))
		if err != nil {
			return nil, nil, err
		}
		ri.UsePipelining = !viper.GetBool("input.redis.nopipe")
		if key := viper.GetString("input.redis.key"); key != "" {
			ri.Key = key
		}
		if pse != nil {
			ri.SubmitStats(pse)
		}
		inputs = append(inputs, ri)
	}
	if inputSocket := viper.GetString("input.socket"); inputSocket != "" {
		si, err := input.MakeSocketInput(inputSocket, addrChan, viper.GetBool("input.buffer-drop"))
		if err != nil {
			return nil, nil, err
		}
		if pse != nil {
			si.SubmitStats(pse)
		}
		inputs = append(inputs, si)
	}
	if viper.GetBool("input.stdin") {
		stdin = input.MakeStdinInput(addrChan)
		inputs = append(inputs, stdin)
	}
	if len(inputs) == 0 {
		return nil, nil, fmt.Errorf("no input configured")
	}
	return inputs, stdin, nil
}
