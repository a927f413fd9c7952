package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/config"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/external/lark"
)

// Sends a text message and an interactive card to the approver chat so the
// Lark app credentials and chat membership can be checked without running
// the whole server.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	chatID := flag.String("chat", "", "chat_id to post to (defaults to lark.approver_chat_id)")
	flag.Parse()

	fmt.Println("=== Lark Approver Chat Test ===")
	fmt.Println()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	target := *chatID
	if target == "" {
		target = cfg.Lark.ApproverChatID
	}
	if target == "" {
		log.Fatal("No chat_id provided. Pass -chat or set LARK_APPROVER_CHAT_ID.")
	}

	larkCfg := lark.Config{
		AppID:          cfg.Lark.AppID,
		AppSecret:      cfg.Lark.AppSecret,
		ApproverChatID: target,
	}
	if !larkCfg.Enabled() {
		log.Fatal("Lark app_id and app_secret are required")
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	messenger := lark.NewMessenger(lark.NewSDKClient(larkCfg, logger), logger)

	fmt.Printf("App ID: %s\n", mask(cfg.Lark.AppID))
	fmt.Printf("Chat ID: %s\n", target)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("\n[Step 1] Sending text message...")
	if err := messenger.SendText(ctx, target, "Test message from the purchase request workflow"); err != nil {
		fmt.Printf("✗ Failed to send text message: %v\n", err)
	} else {
		fmt.Println("✓ Text message sent")
	}

	fmt.Println("\n[Step 2] Sending interactive card...")
	if err := messenger.SendCard(ctx, target, testCard()); err != nil {
		fmt.Printf("✗ Failed to send card message: %v\n", err)
	} else {
		fmt.Println("✓ Interactive card sent")
	}

	fmt.Println("\n=== Test Complete ===")
}

func testCard() map[string]interface{} {
	return map[string]interface{}{
		"config": map[string]interface{}{"wide_screen_mode": true},
		"header": map[string]interface{}{
			"template": "blue",
			"title": map[string]interface{}{
				"tag":     "plain_text",
				"content": "REQ-0000-0000 test card",
			},
		},
		"elements": []interface{}{
			map[string]interface{}{
				"tag": "div",
				"text": map[string]interface{}{
					"tag":     "lark_md",
					"content": "**Product:** Test item\n**Quantity:** 1\n**Justification:** connectivity check",
				},
			},
		},
	}
}

func mask(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
