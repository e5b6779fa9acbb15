package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/notify"
)

// 通知事件名，用于日志与队列载荷
const (
	eventRegisterOTP       = "register_otp"
	eventPhoneOTP          = "phone_otp"
	eventLoginOTP          = "login_otp"
	eventTicketCreated     = "ticket_created"
	eventTicketAdminNotice = "ticket_admin_notice"
	eventTicketReply       = "ticket_reply"
	eventTicketClosed      = "ticket_closed"
	eventQuizResult        = "quiz_result"
	eventContactReceived   = "contact_received"
	eventApplicationStatus = "application_status"
	eventApplicationNew    = "application_received"
)

func otpMessage(channel, to, code, purpose string, expiresAt time.Time) notify.Message {
	minutes := int(time.Until(expiresAt).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	body := fmt.Sprintf("Your SwiftMeta %s code is %s. It expires in %d minutes. Do not share it.", purpose, code, minutes)
	return notify.Message{
		Channel: channel,
		To:      to,
		Subject: "Your SwiftMeta verification code",
		Body:    body,
	}
}

func ticketCreatedMessage(ticket *models.Ticket, firstMessage string) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for contacting SwiftMeta support.\n\n")
	fmt.Fprintf(&b, "Ticket ID: %s\nSubject: %s\n\n", ticket.TicketID, ticket.Subject)
	fmt.Fprintf(&b, "Your message:\n%s\n\n", firstMessage)
	b.WriteString("Keep this ticket ID to follow up on your request.")
	return notify.Message{
		Channel: notify.ChannelEmail,
		To:      ticket.Email,
		Subject: fmt.Sprintf("[%s] We received your request", ticket.TicketID),
		Body:    b.String(),
	}
}

func ticketAdminNoticeMessage(adminEmail string, ticket *models.Ticket, text string) notify.Message {
	body := fmt.Sprintf("Ticket %s from %s (%s)\nStatus: %s\n\n%s", ticket.TicketID, ticket.Email, ticket.Subject, ticket.Status, text)
	return notify.Message{
		Channel: notify.ChannelEmail,
		To:      adminEmail,
		Subject: fmt.Sprintf("[%s] New customer message", ticket.TicketID),
		Body:    body,
	}
}

func ticketReplyMessage(ticket *models.Ticket, text string) notify.Message {
	body := fmt.Sprintf("Support replied to your ticket %s:\n\n%s\n\nReply with your ticket ID to continue the conversation.", ticket.TicketID, text)
	return notify.Message{
		Channel: notify.ChannelEmail,
		To:      ticket.Email,
		Subject: fmt.Sprintf("[%s] New reply from support", ticket.TicketID),
		Body:    body,
	}
}

func ticketClosedMessage(ticket *models.Ticket) notify.Message {
	return notify.Message{
		Channel: notify.ChannelEmail,
		To:      ticket.Email,
		Subject: fmt.Sprintf("[%s] Ticket closed", ticket.TicketID),
		Body:    fmt.Sprintf("%s\n\nTicket ID: %s\nSubject: %s", constants.TicketClosedMessage, ticket.TicketID, ticket.Subject),
	}
}

func quizResultMessage(attempt *models.QuizAttempt) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You scored %d out of %d (%d%%).\n\n", attempt.Score, attempt.Total, attempt.Percentage)
	if attempt.Passed {
		b.WriteString("Congratulations, you passed the assessment. We will be in touch about next steps.")
	} else if attempt.NextAllowedAttempt != nil {
		fmt.Fprintf(&b, "Unfortunately you did not pass this time. You may retake the assessment after %s.",
			attempt.NextAllowedAttempt.UTC().Format("2 January 2006"))
	}
	return notify.Message{
		Channel: notify.ChannelEmail,
		To:      attempt.Email,
		Subject: "Your SwiftMeta assessment result",
		Body:    b.String(),
	}
}

func contactAdminMessage(adminEmail string, contact *models.Contact) notify.Message {
	subject := contact.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	return notify.Message{
		Channel: notify.ChannelEmail,
		To:      adminEmail,
		Subject: "New contact message: " + subject,
		Body:    fmt.Sprintf("From: %s <%s>\n\n%s", contact.Name, contact.Email, contact.Message),
	}
}

func applicationReceivedMessage(app *models.Application) notify.Message {
	return notify.Message{
		Channel: notify.ChannelEmail,
		To:      app.Email,
		Subject: "We received your application",
		Body: fmt.Sprintf("Hi %s,\n\nThank you for applying. Your application is now %s. "+
			"You can check its status any time using your email address or ID number.", app.FirstName, strings.ToLower(app.Status)),
	}
}

func applicationStatusMessage(app *models.Application) notify.Message {
	var line string
	switch app.Status {
	case constants.ApplicationStatusSuccessful:
		line = "Congratulations, your application was successful."
	case constants.ApplicationStatusUnsuccessful:
		line = "Unfortunately your application was not successful this time."
	case constants.ApplicationStatusSecondIntake:
		line = "Your application has been moved to our second intake."
	default:
		line = "Your application is being reviewed."
	}
	return notify.Message{
		Channel: notify.ChannelEmail,
		To:      app.Email,
		Subject: "Your application status changed",
		Body:    fmt.Sprintf("Hi %s,\n\n%s", app.FirstName, line),
	}
}
