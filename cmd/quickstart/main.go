// Command quickstart prints the current Kimola subscription usage.
//
//	KIMOLA_API_KEY=... go run ./cmd/quickstart [-presets]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kimola/kimola-go/kimola"
)

func main() {
	listPresets := flag.Bool("presets", false, "also list the first page of presets")
	flag.Parse()

	client, err := kimola.New(kimola.Options{APIKey: os.Getenv("KIMOLA_API_KEY")})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	if err := run(context.Background(), os.Stdout, client, *listPresets); err != nil {
		client.Close()
		log.Fatal(err)
	}
}

func run(ctx context.Context, w io.Writer, client *kimola.Client, listPresets bool) error {
	if listPresets {
		page, err := client.Presets.List(ctx, kimola.ListPresetsParams{})
		if err != nil {
			return err
		}
		for _, p := range page.Items {
			fmt.Fprintf(w, "Preset: %s (%s)\n", p.Name, p.Key)
		}
	}

	usage, err := client.Subscription.Usage(ctx, kimola.UsageParams{})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Current subscription usage:", usage)
	return nil
}
