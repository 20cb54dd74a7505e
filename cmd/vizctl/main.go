package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/vizwave/api/pkg/vizclient"
)

func main() {
	var (
		server     = flag.String("server", "http://localhost:8000", "visualization server base URL")
		audioPath  = flag.String("audio", "", "path to the audio file (.wav or .mp3)")
		output     = flag.String("o", "", "output video path (default <audio>.mp4)")
		visualizer = flag.String("visualizer", "bars", "visualizer: bars, wave, circular, curves")
		scheme     = flag.String("colors", "classic", "color scheme: classic, neon, sunset, mono, spectrum")
		width      = flag.Int("width", 1280, "video width")
		height     = flag.Int("height", 720, "video height")
		fps        = flag.Int("fps", 30, "frames per second")
		barCount   = flag.Int("bars", 64, "number of spectrum bars")
		smoothing  = flag.Float64("smoothing", 0.6, "spectrum smoothing 0..1")
		sens       = flag.Float64("sensitivity", 1.0, "spectrum sensitivity 0.1..10")
		mirror     = flag.Bool("mirror", false, "mirror the spectrum")
		bgMode     = flag.String("background", "none", "background mode: none, image, shader")
		bgShader   = flag.String("shader", "", "catalog shader name for shader backgrounds")
		bgFile     = flag.String("background-file", "", "background image or .glsl file to upload")
		interval   = flag.Duration("poll-interval", 2*time.Second, "status poll interval")
		maxWait    = flag.Duration("max-wait", 15*time.Minute, "maximum time to wait for the render")
	)
	flag.Parse()

	if *audioPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *output == "" {
		base := (*audioPath)[:len(*audioPath)-len(filepath.Ext(*audioPath))]
		*output = base + ".mp4"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *server, *audioPath, *output, settings{
		visualizer: *visualizer,
		scheme:     *scheme,
		width:      *width,
		height:     *height,
		fps:        *fps,
		barCount:   *barCount,
		smoothing:  *smoothing,
		sens:       *sens,
		mirror:     *mirror,
		bgMode:     *bgMode,
		bgShader:   *bgShader,
		bgFile:     *bgFile,
	}, vizclient.PollConfig{Interval: *interval, MaxWait: *maxWait}); err != nil {
		log.Fatalf("vizctl: %v", err)
	}
}

type settings struct {
	visualizer string
	scheme     string
	width      int
	height     int
	fps        int
	barCount   int
	smoothing  float64
	sens       float64
	mirror     bool
	bgMode     string
	bgShader   string
	bgFile     string
}

func run(ctx context.Context, server, audioPath, output string, st settings, poll vizclient.PollConfig) error {
	audio, err := os.Open(audioPath)
	if err != nil {
		return err
	}
	defer audio.Close()

	form := vizclient.NewForm()
	form.SetField("visualizer", st.visualizer)
	form.SetField("color_scheme", st.scheme)
	form.SetField("width", strconv.Itoa(st.width))
	form.SetField("height", strconv.Itoa(st.height))
	form.SetField("fps", strconv.Itoa(st.fps))
	form.SetField("bar_count", strconv.Itoa(st.barCount))
	form.SetField("smoothing", strconv.FormatFloat(st.smoothing, 'f', -1, 64))
	form.SetField("sensitivity", strconv.FormatFloat(st.sens, 'f', -1, 64))
	form.SetBool("mirror_spectrum", st.mirror)
	form.SetField("background_mode", st.bgMode)
	if st.bgShader != "" {
		form.SetField("background_shader", st.bgShader)
	}
	form.AttachAudio(filepath.Base(audioPath), audio)
	if st.bgFile != "" {
		bg, berr := os.Open(st.bgFile)
		if berr != nil {
			return berr
		}
		defer bg.Close()
		form.Attach("background", filepath.Base(st.bgFile), bg)
	}

	if verr := vizclient.Validate(form, vizclient.DefaultSpecs()); verr != nil {
		return verr
	}

	client := vizclient.NewClient(server)
	jobID, err := client.Upload(ctx, form)
	if err != nil {
		return err
	}
	log.Printf("submitted job %s", jobID)

	final, err := client.Poll(ctx, jobID, poll, func(s *vizclient.Status) {
		log.Printf("%s %3d%% %s", s.Status, s.Progress, s.Message)
	})
	if err != nil {
		if vizclient.IsShader(err) {
			je := err.(*vizclient.JobError)
			return fmt.Errorf("shader %s failed to compile: %s", je.ShaderName, je.Message)
		}
		return err
	}
	log.Printf("job %s completed", final.JobID)

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := client.Download(ctx, jobID, out); err != nil {
		os.Remove(output)
		return err
	}
	log.Printf("wrote %s", output)
	return nil
}
