package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"mandala-magic/internal/common/config"
	"mandala-magic/internal/mandala/discovery"
	"mandala-magic/internal/mandala/models"
	"mandala-magic/internal/mandala/raster"
	"mandala-magic/internal/mandala/replay"
)

// ============================================================
// Replay Tool
// ============================================================

func main() {
	in := flag.String("in", "", "recorded frames, one JSON Frame per line")
	out := flag.String("out", ".", "output directory for offline export")
	format := flag.String("format", "png", "export format: png, jpeg, bmp, tiff, pdf")
	width := flag.Int("width", 1280, "canvas width")
	height := flag.Int("height", 720, "canvas height")
	settingsFile := flag.String("config", "", "YAML file with drawing settings")

	stream := flag.Bool("stream", false, "stream frames to a running service instead of rendering locally")
	addr := flag.String("addr", "", "service HTTP address host:port (mDNS lookup when empty)")
	wsPort := flag.String("ws-port", "3001", "service WebSocket port when -addr is set")
	lookup := flag.Duration("lookup", 3*time.Second, "mDNS lookup timeout")
	delay := flag.Duration("delay", 0, "pause between streamed frames")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	settings := models.DefaultSettings()
	if *settingsFile != "" {
		d, err := config.LoadDrawing(*settingsFile)
		if err != nil {
			log.Fatalf("[REPLAY] %v", err)
		}
		settings = d.Settings
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("[REPLAY] open frames: %v", err)
	}
	frames, err := replay.ReadFrames(f)
	f.Close()
	if err != nil {
		log.Fatalf("[REPLAY] %v", err)
	}
	log.Printf("[REPLAY] loaded %d frames from %s", len(frames), *in)

	if *stream {
		if err := streamFrames(frames, settings, *width, *height, *addr, *wsPort, *format, *lookup, *delay); err != nil {
			log.Fatalf("[REPLAY] %v", err)
		}
		return
	}

	if err := renderOffline(frames, settings, *width, *height, *out, *format); err != nil {
		log.Fatalf("[REPLAY] %v", err)
	}
}

func renderOffline(frames []models.Frame, settings models.Settings, width, height int, outDir, format string) error {
	fmtOut, err := raster.ParseFormat(format)
	if err != nil {
		return err
	}

	canvas, sum, err := replay.Render(frames, width, height, settings)
	if err != nil {
		return err
	}

	path, err := replay.WriteExport(outDir, canvas, fmtOut)
	if err != nil {
		return err
	}
	log.Printf("[REPLAY] %d frames (%d rejected), %d segments -> %s", sum.Frames, sum.Rejected, sum.Stats.Segments, path)
	return nil
}

func streamFrames(frames []models.Frame, settings models.Settings, width, height int, addr, wsPort, format string, lookup, delay time.Duration) error {
	if addr == "" {
		services, err := discovery.Lookup(lookup)
		if err != nil {
			return err
		}
		if len(services) == 0 {
			return fmt.Errorf("no mandala service found via mDNS")
		}
		addr = services[0].Addr
		if services[0].WSPort != "" {
			wsPort = services[0].WSPort
		}
		log.Printf("[REPLAY] using %s (%s)", services[0].Instance, addr)
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	client := replay.NewClient("http://"+addr, "ws://"+net.JoinHostPort(host, wsPort))

	id, err := client.CreateSession(width, height, &settings)
	if err != nil {
		return err
	}
	log.Printf("[REPLAY] session %s created", id)

	sum, err := client.Stream(id, frames, delay)
	if err != nil {
		return err
	}

	rec, err := client.Export(id, format)
	if err != nil {
		return err
	}
	log.Printf("[REPLAY] streamed %d frames (%d rejected), export %s (%d bytes)", sum.Frames, sum.Rejected, rec.Filename, rec.Size)
	return nil
}
