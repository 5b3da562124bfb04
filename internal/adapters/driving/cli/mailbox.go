package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runMe,
}

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List mail folders",
	Args:  cobra.NoArgs,
	RunE:  runFolders,
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List messages in a folder",
	Long: `List one page of messages. When the page is full a cursor is printed;
pass it back with --cursor to fetch the next page.`,
	Args: cobra.NoArgs,
	RunE: runMessages,
}

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Inspect or change a single message",
}

var messageGetCmd = &cobra.Command{
	Use:   "get [message-id]",
	Short: "Show a message",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessageGet,
}

var messageMoveCmd = &cobra.Command{
	Use:   "move [message-id] [destination]",
	Short: "Move a message to another folder",
	Long:  `Move a message. The destination is a folder ID or a well-known name such as archive.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runMessageMove,
}

var messageMarkReadCmd = &cobra.Command{
	Use:   "mark-read [message-id]",
	Short: "Mark a message read (or unread with --unread)",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessageMarkRead,
}

var messageUpdateCmd = &cobra.Command{
	Use:   "update [message-id]",
	Short: "Update message properties",
	Long: `Update message properties with repeated --set name=value flags.
Values are parsed as JSON when possible, so --set isRead=true sends a boolean.`,
	Args: cobra.ExactArgs(1),
	RunE: runMessageUpdate,
}

var messageAttachmentsCmd = &cobra.Command{
	Use:   "attachments [message-id]",
	Short: "List a message's attachments",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessageAttachments,
}

// Flags for mailbox commands.
var (
	foldersParent    string
	messagesFolder   string
	messagesUnread   bool
	messagesSkip     int
	messagesLimit    int
	messagesCursor   string
	markUnread       bool
	messageSetFields []string
)

func init() {
	foldersCmd.Flags().StringVar(&foldersParent, "parent", "", "list child folders of this folder")

	messagesCmd.Flags().StringVarP(&messagesFolder, "folder", "f", "inbox", "folder ID or well-known name")
	messagesCmd.Flags().BoolVarP(&messagesUnread, "unread", "u", false, "only unread messages")
	messagesCmd.Flags().IntVar(&messagesSkip, "skip", 0, "messages to skip")
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 0, "page size (default 20)")
	messagesCmd.Flags().StringVar(&messagesCursor, "cursor", "", "continue from a previous listing")

	messageMarkReadCmd.Flags().BoolVar(&markUnread, "unread", false, "mark unread instead")
	messageUpdateCmd.Flags().StringArrayVar(&messageSetFields, "set", nil, "property as name=value (can be repeated)")

	messageCmd.AddCommand(messageGetCmd)
	messageCmd.AddCommand(messageMoveCmd)
	messageCmd.AddCommand(messageMarkReadCmd)
	messageCmd.AddCommand(messageUpdateCmd)
	messageCmd.AddCommand(messageAttachmentsCmd)

	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(messageCmd)
}

func runMe(cmd *cobra.Command, _ []string) error {
	if mailboxService == nil {
		return fmt.Errorf("mailbox %w", errNotConfigured)
	}

	user, err := mailboxService.Me(commandContext(cmd))
	if err != nil {
		return err
	}
	cmd.Printf("Name:  %s\n", user.DisplayName)
	cmd.Printf("Email: %s\n", user.Email())
	cmd.Printf("ID:    %s\n", user.ID)
	return nil
}

func runFolders(cmd *cobra.Command, _ []string) error {
	if mailboxService == nil {
		return fmt.Errorf("mailbox %w", errNotConfigured)
	}
	ctx := commandContext(cmd)

	var (
		folders []domain.Folder
		err     error
	)
	if foldersParent != "" {
		folders, err = mailboxService.ListChildFolders(ctx, foldersParent)
	} else {
		folders, err = mailboxService.ListFolders(ctx)
	}
	if err != nil {
		return err
	}

	if len(folders) == 0 {
		cmd.Println("No folders found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUNREAD\tTOTAL\tCHILDREN\tID")
	for _, f := range folders {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", f.DisplayName, f.UnreadItemCount, f.TotalItemCount, f.ChildFolderCount, f.ID)
	}
	return w.Flush()
}

func runMessages(cmd *cobra.Command, _ []string) error {
	if mailboxService == nil {
		return fmt.Errorf("mailbox %w", errNotConfigured)
	}

	page, err := mailboxService.ListMessages(commandContext(cmd), domain.ListOptions{
		Folder:     messagesFolder,
		UnreadOnly: messagesUnread,
		Skip:       messagesSkip,
		Limit:      messagesLimit,
		Cursor:     messagesCursor,
	})
	if err != nil {
		return err
	}

	if len(page.Messages) == 0 {
		cmd.Println("No messages found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tFROM\tTO\tSUBJECT\tATT\tID")
	for _, m := range page.Messages {
		att := ""
		if m.HasAttachments {
			att = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", m.Date, displayAddress(m.From), m.To, m.Subject, att, m.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if page.Next != "" {
		cmd.Println()
		cmd.Printf("Next page: graphmail messages --cursor %s\n", page.Next)
	}
	return nil
}

func runMessageGet(cmd *cobra.Command, args []string) error {
	if mailboxService == nil {
		return fmt.Errorf("mailbox %w", errNotConfigured)
	}

	msg, err := mailboxService.GetMessage(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	printMessage(cmd, msg)
	return nil
}

func runMessageMove(cmd *cobra.Command, args []string) error {
	if mailboxService == nil {
		return fmt.Errorf("mailbox %w", errNotConfigured)
	}

	moved, err := mailboxService.MoveMessage(commandContext(cmd), args[0], args[1])
	if err != nil {
		return err
	}
	cmd.Printf("Moved message to %s\n", args[1])
	cmd.Printf("New ID: %s\n", moved.ID)
	return nil
}

func runMessageMarkRead(cmd *cobra.Command, args []string) error {
	if mailboxService == nil {
		return fmt.Errorf("mailbox %w", errNotConfigured)
	}

	if err := mailboxService.MarkRead(commandContext(cmd), args[0], !markUnread); err != nil {
		return err
	}
	state := "read"
	if markUnread {
		state = "unread"
	}
	cmd.Printf("Marked %s as %s\n", args[0], state)
	return nil
}

func runMessageUpdate(cmd *cobra.Command, args []string) error {
	if mailboxService == nil {
		return fmt.Errorf("mailbox %w", errNotConfigured)
	}

	fields, err := parseFields(messageSetFields)
	if err != nil {
		return err
	}
	if err := mailboxService.UpdateMessage(commandContext(cmd), args[0], fields); err != nil {
		return err
	}
	cmd.Printf("Updated %s\n", args[0])
	return nil
}

func runMessageAttachments(cmd *cobra.Command, args []string) error {
	if mailboxService == nil {
		return fmt.Errorf("mailbox %w", errNotConfigured)
	}

	attachments, err := mailboxService.ListAttachments(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if len(attachments) == 0 {
		cmd.Println("No attachments.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tSIZE\tINLINE\tID")
	for _, a := range attachments {
		fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n", a.Name, a.ContentType, a.Size, a.IsInline, a.ID)
	}
	return w.Flush()
}

func printMessage(cmd *cobra.Command, msg *domain.MessageDetail) {
	to := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, displayAddress(a))
	}

	cmd.Printf("ID:       %s\n", msg.ID)
	cmd.Printf("Subject:  %s\n", msg.Subject)
	cmd.Printf("From:     %s\n", displayAddress(msg.From))
	if msg.Sender.Address != "" && msg.Sender.Key() != msg.From.Key() {
		cmd.Printf("Sender:   %s\n", displayAddress(msg.Sender))
	}
	cmd.Printf("To:       %s\n", strings.Join(to, ", "))
	cmd.Printf("Received: %s\n", msg.ReceivedDateTime)
	cmd.Printf("Read:     %t\n", msg.IsRead)
	cmd.Printf("Attach:   %t\n", msg.HasAttachments)
	cmd.Printf("Folder:   %s\n", msg.ParentFolderID)
	if len(msg.Headers) > 0 {
		cmd.Println("Headers:")
		for _, h := range msg.Headers {
			cmd.Printf("  %s: %s\n", h.Name, h.Value)
		}
	}
}

func displayAddress(a domain.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

// parseFields turns name=value pairs into a PATCH body. Values that are
// valid JSON keep their type; anything else is sent as a string.
func parseFields(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid field format: %s (expected name=value)", kv)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[strings.TrimSpace(name)] = value
	}
	return fields, nil
}
