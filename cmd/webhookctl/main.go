// Command webhookctl inspects and manages the bot's Telegram webhook
// registration without starting the bot.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
