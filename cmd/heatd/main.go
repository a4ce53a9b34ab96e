package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/heating.go/pkg/bridge"
	"github.com/robotalks/heating.go/pkg/comm/mqtt"
	"github.com/robotalks/heating.go/pkg/env"
	"github.com/robotalks/heating.go/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func run() error {
	conf, err := env.NewConfig()
	if err != nil {
		return err
	}

	clientID := conf.ClientID
	if clientID == "" {
		clientID = mqtt.DefaultClientID("heatd")
	}
	q, err := mqtt.NewQueueFromURL(conf.MQTTURL, clientID)
	if err != nil {
		return err
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer q.Close()
	glog.Infof("connected broker %s", conf.MQTTURL)

	client, err := conf.Dial()
	if err != nil {
		return err
	}
	glog.Infof("connected device %s", conf.Device)

	b := bridge.New(client, q, conf.PollInterval)
	return framework.NewRunner().
		HandleSignals().
		Go(framework.NamedRun(b.Name(), framework.RunFunc(func(ctx context.Context) error {
			// closing the client unblocks a pending read on shutdown.
			return framework.RunWithContextCloser(ctx, client, func() error {
				return b.Run(ctx)
			})
		}))).
		Wait()
}

func main() {
	flag.Parse()
	err := run()
	if err != nil {
		glog.Error(err)
	}
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
