package worker

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Janitor removes rendered videos and spent uploads after their retention
// window. Status records in redis expire on their own TTL.
type Janitor struct {
	dirs   []string
	maxAge time.Duration
	every  time.Duration
}

func NewJanitor(outputDir, workDir string, keepDays int) *Janitor {
	if keepDays <= 0 {
		keepDays = 1
	}
	return &Janitor{
		dirs:   []string{outputDir, workDir},
		maxAge: time.Duration(keepDays) * 24 * time.Hour,
		every:  time.Hour,
	}
}

// Run blocks until ctx is done, sweeping on a fixed interval.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Janitor shutting down")
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	cutoff := time.Now().Add(-j.maxAge)
	for _, dir := range j.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				path := filepath.Join(dir, entry.Name())
				log.Printf("Cleaning up expired file: %s", path)
				os.Remove(path)
			}
		}
	}
}
