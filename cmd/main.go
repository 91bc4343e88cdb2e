package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/ges-coastal/coastal-monitor/internal/notification"
	"github.com/joho/godotenv"
)

func printBanner() {
	figure1 := figure.NewFigure("Coastal", "isometric1", true)
	figure2 := figure.NewFigure("Monitor", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func loadEnv() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func initCLI(ctx context.Context) (code int) {
	defer func() {
		if r := recover(); r != nil {
			// Get the function, file, and line where panic occurred
			pc, file, line, ok := runtime.Caller(3)
			var location string
			if ok {
				fn := runtime.FuncForPC(pc)
				location = fmt.Sprintf("%s:%d in %s", file, line, fn.Name())
			} else {
				location = "Unknown location"
			}

			fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
			fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
			fmt.Printf("\033[31mPlease check the input and try again.\033[0m\n")
			fmt.Printf("\033[31mExiting...\033[0m\n")

			stack := debug.Stack()
			errMessage := fmt.Sprintf("Coastal monitor panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, stack)
			if err := notification.SendDiscordErrorNotification(errMessage); err != nil {
				fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
			}
			code = 2
		}
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Printf("\n\033[31mError: %s\033[0m\n", err.Error())
		return 1
	}
	return 0
}

func main() {
	loadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := initCLI(ctx)
	stop()
	os.Exit(code)
}
