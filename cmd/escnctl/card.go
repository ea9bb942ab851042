package main

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lzjever/escn/internal/core"
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Student card commands",
}

var cardGetCmd = &cobra.Command{
	Use:   "get <student-id>",
	Short: "Show the card the registry holds for a student",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var card core.Card
		exitOnErr(NewClient(apiURL).Get("/v1/students/"+url.PathEscape(args[0])+"/card", &card))
		printResult(card)
	},
}

var (
	cardType           string
	cardIdempotencyKey string
)

var cardCreateCmd = &cobra.Command{
	Use:   "create <student-id>",
	Short: "Issue a card with a new ESCN",
	Long: `Issue a card with a new ESCN. Re-running with the same --idempotency-key
returns the card issued the first time.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := cardIdempotencyKey
		if key == "" {
			key = uuid.New().String()
		}
		var body interface{}
		if cardType != "" {
			body = map[string]string{"card_type": cardType}
		}

		var issued core.IssuedCard
		err := NewClient(apiURL).Post("/v1/students/"+url.PathEscape(args[0])+"/cards", body, &issued, map[string]string{
			"Idempotency-Key": key,
		})
		exitOnErr(err)
		printResult(issued)
	},
}

var cardLimit int

var cardListCmd = &cobra.Command{
	Use:   "list <student-id>",
	Short: "List the cards issued to a student",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL)
		path := "/v1/students/" + url.PathEscape(args[0]) + "/cards?limit=" + strconv.Itoa(cardLimit)

		var all []core.IssuedCard
		cursor := ""
		for {
			var resp struct {
				Cards      []core.IssuedCard `json:"cards"`
				NextCursor string            `json:"next_cursor"`
			}
			p := path
			if cursor != "" {
				p += "&cursor=" + url.QueryEscape(cursor)
			}
			exitOnErr(client.Get(p, &resp))
			all = append(all, resp.Cards...)
			if resp.NextCursor == "" {
				break
			}
			cursor = resp.NextCursor
		}
		printResult(all)
	},
}

func init() {
	cardCreateCmd.Flags().StringVar(&cardType, "card-type", "", "Card type (server default when empty)")
	cardCreateCmd.Flags().StringVar(&cardIdempotencyKey, "idempotency-key", "", "Idempotency key (random when empty)")
	cardListCmd.Flags().IntVar(&cardLimit, "page-size", 50, "Cards fetched per request")
	cardCmd.AddCommand(cardGetCmd, cardCreateCmd, cardListCmd)
	rootCmd.AddCommand(cardCmd)
}
