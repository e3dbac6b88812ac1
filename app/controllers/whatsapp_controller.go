package controllers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/kmathenge/powervend/app/repository"
	"github.com/kmathenge/powervend/internal/pkg/env"
	"github.com/kmathenge/powervend/internal/pkg/whatsapp"
)

// PaymentMethodWhatsApp marks purchases made through the chat channel.
const PaymentMethodWhatsApp = "WhatsApp"

var whatsappClient = whatsapp.NewClientFromEnv()

// SetWhatsAppClient overrides the Graph API client; used by tests.
func SetWhatsAppClient(client *whatsapp.Client) {
	whatsappClient = client
}

// HandleWhatsAppVerify answers Meta's webhook verification handshake:
// hub.mode=subscribe with the right hub.verify_token echoes hub.challenge.
func HandleWhatsAppVerify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing hub.mode or hub.verify_token")
	}
	if mode != "subscribe" || token != env.GetEnv("WHATSAPP_VERIFY_TOKEN", "") {
		return c.Status(fiber.StatusForbidden).SendString("Verification failed")
	}
	return c.SendString(challenge)
}

// HandleWhatsAppWebhook receives inbound messages, runs the chat commands
// against the vending engine and replies to the sender. The webhook always
// returns 200 so Meta does not retry messages we already processed.
func HandleWhatsAppWebhook(c *fiber.Ctx) error {
	var payload whatsapp.WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("whatsapp webhook: unreadable payload: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	for _, msg := range payload.TextMessages() {
		reply := executeChatCommand(c, msg.Text.Body)
		if err := whatsappClient.SendText(c.Context(), msg.From, reply); err != nil {
			log.Printf("whatsapp webhook: reply to %s failed: %v", msg.From, err)
		}
	}
	return c.SendStatus(fiber.StatusOK)
}

// executeChatCommand turns one inbound message into a reply string. Errors
// come back as user-facing text, never as HTTP failures.
func executeChatCommand(c *fiber.Ctx, body string) string {
	cmd, err := whatsapp.ParseCommand(body)
	if err != nil {
		return err.Error()
	}

	switch cmd.Kind {
	case whatsapp.CommandRate:
		rate, err := repository.GetGlobalFactory().GetRateRepository().GetActive()
		if err != nil || rate == nil {
			return "No active electricity rate found."
		}
		return fmt.Sprintf("The current active electricity rate is %s KES per unit.", rate.PricePerUnit.StringFixed(2))

	case whatsapp.CommandCost:
		cost, _, err := Vending().CalculateCost(c.Context(), cmd.Units)
		if err != nil {
			return "Error calculating cost: " + err.Error()
		}
		if cmd.DeviceID != "" {
			return fmt.Sprintf("The cost for %s units for device %s is %s KES.", cmd.Units.String(), cmd.DeviceID, cost.StringFixed(2))
		}
		return fmt.Sprintf("The cost for %s units is %s KES.", cmd.Units.String(), cost.StringFixed(2))

	case whatsapp.CommandBuy:
		trx, err := Vending().PurchaseByDevice(c.Context(), cmd.DeviceID, cmd.Units, PaymentMethodWhatsApp, "Purchase via WhatsApp")
		if err != nil {
			return "Purchase failed: " + err.Error()
		}
		return fmt.Sprintf(
			"Purchase successful! Reference: %s. Units: %s, Amount: %s KES.",
			trx.Reference, trx.UnitsPurchased.StringFixed(2), trx.Amount.StringFixed(2),
		)

	default:
		return whatsapp.HelpText()
	}
}
