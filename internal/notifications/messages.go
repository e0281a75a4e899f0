package notifications

import (
	"fmt"
	"strings"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

// ContactConfirmation acknowledges a submission to the sender.
func ContactConfirmation(c *models.Contact) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", c.Name)
	b.WriteString("Thanks for getting in touch. We received your message and will get back to you soon.\n\n")
	fmt.Fprintf(&b, "Subject: %s\n\n%s\n\n", c.Subject, c.Message)
	b.WriteString("NKmoviehub support")
	return Message{
		To:      []string{c.Email},
		Subject: "We received your message: " + c.Subject,
		Body:    b.String(),
	}
}

// AdminAlert tells the support inbox about a new submission.
func AdminAlert(c *models.Contact, adminEmail string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "New contact message (%s priority)\n\n", c.Priority)
	fmt.Fprintf(&b, "From: %s <%s>\n", c.Name, c.Email)
	if c.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", c.Phone)
	}
	fmt.Fprintf(&b, "Subject: %s\n\n%s\n", c.Subject, c.Message)
	return Message{
		To:      []string{adminEmail},
		Subject: "New contact message: " + c.Subject,
		Body:    b.String(),
		ReplyTo: c.Email,
	}
}

// ContactReply carries an admin's reply back to the sender.
func ContactReply(c *models.Contact, reply string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n%s\n\n", c.Name, reply)
	b.WriteString("----\nYour original message:\n")
	fmt.Fprintf(&b, "%s\n\nNKmoviehub support", c.Message)
	return Message{
		To:      []string{c.Email},
		Subject: "Re: " + c.Subject,
		Body:    b.String(),
	}
}
