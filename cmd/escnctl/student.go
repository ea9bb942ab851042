package main

import (
	"net/url"

	"github.com/spf13/cobra"
)

type StudentRow struct {
	StudentID string `json:"student_id"`
	Exists    bool   `json:"exists"`
}

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Student registry commands",
}

var studentExistsCmd = &cobra.Command{
	Use:   "exists <student-id>",
	Short: "Check whether the registry knows a student",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var row StudentRow
		exitOnErr(NewClient(apiURL).Get("/v1/students/"+url.PathEscape(args[0]), &row))
		printResult(row)
	},
}

var (
	studentEmail  string
	studentName   string
	studentExpiry string
)

var studentCreateCmd = &cobra.Command{
	Use:   "create <student-id>",
	Short: "Register a student",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var row StudentRow
		err := NewClient(apiURL).Post("/v1/students", map[string]string{
			"student_id":  args[0],
			"email":       studentEmail,
			"name":        studentName,
			"expiry_date": studentExpiry,
		}, &row, nil)
		exitOnErr(err)
		printResult(row)
	},
}

func init() {
	studentCreateCmd.Flags().StringVar(&studentEmail, "email", "", "Email address")
	studentCreateCmd.Flags().StringVar(&studentName, "name", "", "Full name")
	studentCreateCmd.Flags().StringVar(&studentExpiry, "expiry-date", "", "Expiry date (registry default when empty)")
	studentCreateCmd.MarkFlagRequired("email")
	studentCmd.AddCommand(studentExistsCmd, studentCreateCmd)
	rootCmd.AddCommand(studentCmd)
}
