// cmd/sqmctl/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sqm-service/internal/config"
	"sqm-service/internal/service"
	"sqm-service/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search ./, ./configs, /etc/sqm-service)")
	deviceType := flag.String("device-type", "", "override sensor device type: SQM-LU|SQM-LE")
	address := flag.String("address", "", "override sensor address (serial port or host[:port])")
	retries := flag.Int("retries", -1, "override retry budget for this command")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <command>\n\nSends a command to the sensor and prints its reply.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 || flag.Arg(0) == "" {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if *deviceType != "" {
		cfg.Sensor.DeviceType = *deviceType
	}
	if *address != "" {
		cfg.Sensor.Address = *address
	}
	// stdout carries the reply only
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		fatalf("init logger: %v", err)
	}
	defer utils.CloseLogger(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	sensorService, err := service.NewSensorService(cfg, nil, logger)
	if err != nil {
		fatalf("create sensor service: %v", err)
	}
	if err := sensorService.Connect(ctx); err != nil {
		fatalf("connect: %v", err)
	}
	defer func() {
		if err := sensorService.Close(context.Background()); err != nil {
			logger.Warn("Sensor close failed", zap.Error(err))
		}
	}()

	select {
	case <-time.After(cfg.Sensor.LongSettle):
	case <-ctx.Done():
		fatalf("interrupted: %v", ctx.Err())
	}

	req := &service.CommandRequest{Command: command}
	if *retries >= 0 {
		req.Retries = retries
	}

	result, err := sensorService.SendCommand(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sensor error: %v\n", err)
		return
	}
	fmt.Printf("Sensor response: %s\n", result.Response)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sqmctl: "+format+"\n", args...)
	os.Exit(1)
}
