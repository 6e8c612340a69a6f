// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	minersdk "github.com/gridmine/gridmine/sdk/go"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

	switch command {
	case "slots":
		showSlots()
	case "miner":
		showMiner()
	case "price":
		showPrice()
	case "mine":
		mine()
	case "buy":
		buy()
	case "watch":
		watch()
	case "version":
		fmt.Printf("minerctl v%s (commit: %s)\n", Version, GitCommit)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("minerctl - inspect and play a gridmine node")
	fmt.Println("\nUsage:")
	fmt.Println("  minerctl <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  slots     Show a range of slots")
	fmt.Println("  miner     Show one address's aggregate state")
	fmt.Println("  price     Show the live unit sale price")
	fmt.Println("  mine      Claim a slot")
	fmt.Println("  buy       Buy the unit sale reserve")
	fmt.Println("  watch     Stream claim events")
	fmt.Println("  version   Show version information")
	fmt.Println("\nCommon Options:")
	fmt.Println("  --node <url>    Node base URL (default: http://localhost:8080)")
}

func nodeFlag() *string {
	return flag.String("node", "http://localhost:8080", "Node base URL")
}

func showSlots() {
	var (
		node = nodeFlag()
		from = flag.Int("from", 0, "First slot index")
		to   = flag.Int("to", 9, "Last slot index (inclusive)")
	)
	flag.Parse()

	client := minersdk.NewClient(*node)
	views, err := client.GetSlots(context.Background(), *from, *to)
	if err != nil {
		fatal(err)
	}
	for _, v := range views {
		owner := v.Owner
		if owner == "" {
			owner = "-"
		}
		fmt.Printf("slot %-4d epoch %-12d price %-12s rate %-8s owner %s %s\n",
			v.Index, v.EpochID, v.CurrentPrice, v.RewardRate, owner, v.URI)
	}
}

func showMiner() {
	var (
		node = nodeFlag()
		addr = flag.String("address", "", "Miner address")
	)
	flag.Parse()

	if *addr == "" {
		fatal(fmt.Errorf("address is required"))
	}
	client := minersdk.NewClient(*node)
	view, err := client.GetMiner(context.Background(), *addr)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("address:        %s\n", view.Address)
	fmt.Printf("reward rate:    %s units/s\n", view.RewardRate)
	fmt.Printf("pending reward: %s\n", view.PendingReward)
	fmt.Printf("unit balance:   %s\n", view.UnitBalance)
	fmt.Printf("native balance: %s\n", view.NativeBalance)
}

func showPrice() {
	node := nodeFlag()
	flag.Parse()

	client := minersdk.NewClient(*node)
	price, err := client.GetPrice(context.Background())
	if err != nil {
		fatal(err)
	}
	fmt.Println(price)
}

func mine() {
	var (
		node    = nodeFlag()
		caller  = flag.String("caller", "", "Claiming address")
		index   = flag.Int("index", -1, "Slot index")
		payment = flag.String("payment", "", "Payment amount")
		uri     = flag.String("uri", "", "Slot color (hex, e.g. ff0000)")
		ttl     = flag.Duration("ttl", time.Minute, "Claim deadline from now")
	)
	flag.Parse()

	if *caller == "" || *index < 0 || *payment == "" {
		fatal(fmt.Errorf("caller, index, and payment are required"))
	}
	amount, err := decimal.NewFromString(*payment)
	if err != nil {
		fatal(fmt.Errorf("bad payment: %w", err))
	}

	ctx := context.Background()
	client := minersdk.NewClient(*node)

	// Quote the live slot first: the claim needs its current epoch id, and
	// quoting the displayed price protects against decay racing the request.
	view, err := client.GetSlot(ctx, *index)
	if err != nil {
		fatal(err)
	}

	receipt, err := client.Mine(ctx, minersdk.MineRequest{
		Caller:      *caller,
		Index:       *index,
		EpochID:     view.EpochID,
		Deadline:    time.Now().Add(*ttl).Unix(),
		QuotedPrice: amount,
		Payment:     amount,
		URI:         *uri,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("claimed slot %d at %s (refund %s, settled %s units to %s)\n",
		receipt.Index, receipt.Price, receipt.Refund, receipt.SettledUnits, receipt.PrevOwner)
}

func buy() {
	var (
		node    = nodeFlag()
		caller  = flag.String("caller", "", "Buying address")
		payment = flag.String("payment", "", "Payment amount")
		ttl     = flag.Duration("ttl", time.Minute, "Purchase deadline from now")
	)
	flag.Parse()

	if *caller == "" || *payment == "" {
		fatal(fmt.Errorf("caller and payment are required"))
	}
	amount, err := decimal.NewFromString(*payment)
	if err != nil {
		fatal(fmt.Errorf("bad payment: %w", err))
	}

	client := minersdk.NewClient(*node)
	receipt, err := client.Buy(context.Background(), minersdk.BuyRequest{
		Caller:      *caller,
		Deadline:    time.Now().Add(*ttl).Unix(),
		QuotedPrice: amount,
		Payment:     amount,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("bought %s units at %s (refund %s, burned %v)\n",
		receipt.Units, receipt.Price, receipt.Refund, receipt.Burned)
}

func watch() {
	node := nodeFlag()
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := minersdk.NewClient(*node)
	events, err := client.SubscribeEvents(ctx)
	if err != nil {
		fatal(err)
	}
	for ev := range events {
		fmt.Printf("%s slot %d claimed by %s for %s (epoch %d, from %s)\n",
			ev.Time.Format(time.RFC3339), ev.Index, ev.Owner, ev.Price, ev.EpochID, ev.PrevOwner)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
