// Command go-dnn runs a detection network over a single image or a
// directory of frames and prints the surviving boxes.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"strings"

	"github.com/nvr-ai/go-dnn/backend/opencv"
	"github.com/nvr-ai/go-dnn/model"
	"github.com/nvr-ai/go-dnn/util"

	_ "image/jpeg"
	_ "image/png"
)

func main() {
	var (
		modelPath     string
		configPath    string
		classesPath   string
		imagePath     string
		framesDir     string
		inputSize     int
		scale         float64
		swapRB        bool
		confThreshold float64
		nmsThreshold  float64
		acrossClasses bool
	)
	flag.StringVar(&modelPath, "model", "", "Path to the network weights file")
	flag.StringVar(&configPath, "config", "", "Path to the optional network description file")
	flag.StringVar(&classesPath, "classes", "", "Path to a text file with one class name per line")
	flag.StringVar(&imagePath, "image", "", "Path to a single image file (.jpg, .jpeg, .png)")
	flag.StringVar(&framesDir, "frames", "", "Path to a directory of frames")
	flag.IntVar(&inputSize, "size", 416, "Network input width and height")
	flag.Float64Var(&scale, "scale", 1.0/255.0, "Pixel scale factor")
	flag.BoolVar(&swapRB, "swap-rb", true, "Swap the R and B channels")
	flag.Float64Var(&confThreshold, "confidence", 0.5, "Detection confidence threshold")
	flag.Float64Var(&nmsThreshold, "nms", 0.5, "NMS IoU threshold (0 disables suppression)")
	flag.BoolVar(&acrossClasses, "nms-across-classes", false, "Suppress across class boundaries")
	flag.Parse()

	if modelPath == "" {
		log.Fatal("missing -model")
	}
	if (imagePath == "") == (framesDir == "") {
		log.Fatal("exactly one of -image or -frames is required")
	}

	net, err := opencv.NewNet(opencv.Config{
		ModelPath:  modelPath,
		ConfigPath: configPath,
	})
	if err != nil {
		log.Fatalf("loading network: %v", err)
	}
	defer net.Close()

	detector, err := model.NewDetectionModel(net)
	if err != nil {
		log.Fatalf("building detector: %v", err)
	}
	detector.SetNMSAcrossClasses(acrossClasses).
		SetInputSize(image.Pt(inputSize, inputSize)).
		SetInputScale(scale).
		SetInputSwapRB(swapRB)

	var classes []string
	if classesPath != "" {
		classes, err = loadClasses(classesPath)
		if err != nil {
			log.Fatalf("loading classes: %v", err)
		}
	}

	frames, err := loadInput(imagePath, framesDir)
	if err != nil {
		log.Fatalf("loading input: %v", err)
	}

	for _, frame := range frames {
		classIDs, confidences, boxes, err := detector.Detect(frame.Image, float32(confThreshold), float32(nmsThreshold))
		if err != nil {
			log.Fatalf("detect %s: %v", frame.Path, err)
		}

		fmt.Printf("%s: %d objects\n", frame.Path, len(boxes))
		for i, box := range boxes {
			fmt.Printf("  %s (%.2f): x=%d y=%d w=%d h=%d\n",
				className(classes, classIDs[i]), confidences[i], box.X, box.Y, box.Width, box.Height)
		}
	}
}

func loadInput(imagePath, framesDir string) ([]util.Frame, error) {
	if framesDir != "" {
		return util.LoadFrames(framesDir)
	}
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return []util.Frame{{Path: imagePath, Image: img}}, nil
}

func loadClasses(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var classes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			classes = append(classes, line)
		}
	}
	return classes, scanner.Err()
}

func className(classes []string, id int) string {
	if id >= 0 && id < len(classes) {
		return classes[id]
	}
	return fmt.Sprintf("class_%d", id)
}
