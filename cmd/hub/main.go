// Command hub is the bootstrap wrapper around the LAN conferencing
// hub: it parses flags, binds the six wire endpoints plus the ambient
// ops-status server, and coordinates shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lanhub/internal/fileshare"
	"lanhub/internal/hub"
	"lanhub/internal/httpapi"
	"lanhub/internal/media/audio"
	"lanhub/internal/media/video"
	"lanhub/internal/metrics"
	"lanhub/internal/presenter"
)

func main() {
	var (
		controlAddr       = flag.String("control-addr", "0.0.0.0:5000", "control endpoint (stream)")
		videoAddr         = flag.String("video-addr", "0.0.0.0:5001", "video endpoint (datagram)")
		audioAddr         = flag.String("audio-addr", "0.0.0.0:5002", "audio endpoint (datagram)")
		screenControlAddr = flag.String("screen-control-addr", "0.0.0.0:5003", "screen-control endpoint (stream)")
		screenDataAddr    = flag.String("screen-data-addr", "0.0.0.0:5004", "screen-data endpoint (datagram)")
		fileAddr          = flag.String("file-addr", "0.0.0.0:5005", "file endpoint (stream)")
		statusAddr        = flag.String("status-addr", "127.0.0.1:8080", "ambient ops-status HTTP endpoint")
		maxUsers          = flag.Int("max-users", hub.MaxUsers, "maximum concurrent participants")
		maxFileSize       = flag.Int64("max-file-size", fileshare.DefaultMaxFileSize, "maximum bytes for a single uploaded file")
		maxTotalFileBytes = flag.Int64("max-total-file-bytes", fileshare.DefaultMaxTotalSize, "ceiling on bytes held across all stored files")
		metricsInterval   = flag.Duration("metrics-interval", 30*time.Second, "interval between hub stats log lines")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	h := hub.New(hub.Config{
		MaxUsers:      *maxUsers,
		MaxFileSize:   *maxFileSize,
		MaxTotalBytes: *maxTotalFileBytes,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	controlLn, err := net.Listen("tcp", *controlAddr)
	if err != nil {
		slog.Error("control listen failed", "addr", *controlAddr, "err", err)
		os.Exit(1)
	}
	screenControlLn, err := net.Listen("tcp", *screenControlAddr)
	if err != nil {
		slog.Error("screen-control listen failed", "addr", *screenControlAddr, "err", err)
		os.Exit(1)
	}
	fileLn, err := net.Listen("tcp", *fileAddr)
	if err != nil {
		slog.Error("file listen failed", "addr", *fileAddr, "err", err)
		os.Exit(1)
	}

	videoConn, err := listenUDP(*videoAddr)
	if err != nil {
		slog.Error("video listen failed", "addr", *videoAddr, "err", err)
		os.Exit(1)
	}
	audioConn, err := listenUDP(*audioAddr)
	if err != nil {
		slog.Error("audio listen failed", "addr", *audioAddr, "err", err)
		os.Exit(1)
	}
	screenDataConn, err := listenUDP(*screenDataAddr)
	if err != nil {
		slog.Error("screen-data listen failed", "addr", *screenDataAddr, "err", err)
		os.Exit(1)
	}

	videoRouter := video.NewRouter(videoConn, h.Registry)
	audioMixer := audio.NewMixer(audioConn, h.Registry)
	screenRouter := presenter.NewScreenDataRouter(screenDataConn, h.Registry, h.Presenter)

	h.RegisterCleanup(videoRouter)
	h.RegisterCleanup(audioMixer)

	status := httpapi.New(h.Registry, h.Presenter, h.Files)

	go h.ServeControl(ctx, controlLn)
	go presenter.ServeControl(ctx, screenControlLn, h.Registry, h.Presenter, h.PresenterNotify)
	go fileshare.Serve(ctx, fileLn, h.Files, h.Registry)
	go videoRouter.Serve(ctx)
	go audioMixer.ServeReceive(ctx)
	go audioMixer.ServeMix(ctx)
	go screenRouter.Serve(ctx)
	go metrics.Run(ctx, h.Registry, h.Presenter, h.Files, *metricsInterval)
	go func() {
		if err := status.Run(ctx, *statusAddr); err != nil {
			slog.Error("status server error", "err", err)
		}
	}()

	slog.Info("hub listening",
		"control", *controlAddr, "video", *videoAddr, "audio", *audioAddr,
		"screen_control", *screenControlAddr, "screen_data", *screenDataAddr,
		"file", *fileAddr, "status", *statusAddr,
	)

	<-ctx.Done()
	slog.Info("shutting down")

	h.Shutdown(context.Background())
	controlLn.Close()
	screenControlLn.Close()
	fileLn.Close()
	videoConn.Close()
	audioConn.Close()
	screenDataConn.Close()

	slog.Info("hub stopped")
}

func listenUDP(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", udpAddr)
}
