package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wordflowlab/rageval/pkg/store"
)

// debounceDelay 等待文件写入稳定后再触发评测
const debounceDelay = 2 * time.Second

// runWatch 监听目录, 新出现或更新的数据集文件自动触发评测
func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	dir := fs.String("dir", ".", "Directory to watch for dataset files")
	configPath := fs.String("config", "", "Optional YAML config file")
	mode := fs.String("mode", "", "Evaluation mode: structural, judge, hybrid")
	profile := fs.String("profile", "", "Judge profile name from config")
	outputDir := fs.String("output", "", "Output directory for run results")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *mode != "" {
		cfg.Evaluation.Mode = *mode
	}
	if *outputDir != "" {
		cfg.Evaluation.OutputDir = *outputDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	fileStore, err := store.NewFileStore(cfg.Evaluation.OutputDir)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	runner, err := buildRunner(cfg, *profile, logger)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(*dir); err != nil {
		return fmt.Errorf("watch %s: %w", *dir, err)
	}
	log.Printf("watching %s for dataset files", *dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	// 同一文件的连续写事件合并为一次评测
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()

		if t, ok := pending[path]; ok {
			t.Stop()
		}
		pending[path] = time.AfterFunc(debounceDelay, func() {
			mu.Lock()
			delete(pending, path)
			mu.Unlock()

			if err := evaluateFile(ctx, runner, fileStore, path); err != nil {
				log.Printf("evaluate %s: %v", path, err)
			}
		})
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isDatasetFile(event.Name) {
				continue
			}
			schedule(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)

		case <-sig:
			log.Println("shutting down")
			return nil
		}
	}
}

func isDatasetFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json":
		return true
	}
	return false
}
