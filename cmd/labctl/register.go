package main

import (
	"fmt"
	"net/http"

	"lab-booking/internal/domain"
	"lab-booking/internal/form"

	"github.com/spf13/cobra"
	"resty.dev/v3"
)

const registerPath = "/api/v1/register"

type apiError struct {
	Error string `json:"error"`
}

// newRegisterCmd runs the registration guard locally and only submits a form
// that passes it.
func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var f form.RegistrationForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a student account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := form.ValidateRegistration(f); err != nil {
				return err
			}

			client := resty.New().
				SetBaseURL(opts.server).
				SetTimeout(opts.timeout)
			defer client.Close()

			var (
				student domain.Student
				failure apiError
			)
			res, err := client.R().
				SetContext(cmd.Context()).
				SetBody(f).
				SetResult(&student).
				SetError(&failure).
				Post(registerPath)
			if err != nil {
				return fmt.Errorf("POST %s: %w", registerPath, err)
			}
			if res.StatusCode() != http.StatusCreated {
				if failure.Error != "" {
					return fmt.Errorf("registration rejected: %s", failure.Error)
				}
				return fmt.Errorf("registration rejected: status %d", res.StatusCode())
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id %d)\n", student.Username, student.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&f.Username, "username", "", "username")
	cmd.Flags().StringVar(&f.Email, "email", "", "email address")
	cmd.Flags().StringVar(&f.Password, "password", "", "password")
	cmd.Flags().StringVar(&f.ConfirmPassword, "confirm-password", "", "password again")
	return cmd
}
