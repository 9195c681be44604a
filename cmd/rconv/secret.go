package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/secretstore"
)

func newSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the OpenRouter API credential",
	}
	cmd.AddCommand(newSetOpenRouterKeyCommand(), newClearOpenRouterKeyCommand())
	return cmd
}

func secretsStore() secretstore.Store {
	return secretstore.Store{MasterKeyPath: filepath.Join(configDir(), "secret.key")}
}

func newSetOpenRouterKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "set-openrouter-key VALUE",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openStore()
			cfg, presets, _, err := store.Load()
			if err != nil {
				return err
			}
			handle, err := secretsStore().Set("openrouter", args[0])
			if err != nil {
				return err
			}
			cfg.CredentialHandle = handle
			if err := store.Save(cfg, presets); err != nil {
				return err
			}
			fmt.Println("openrouter credential stored")
			return nil
		},
	}
}

func newClearOpenRouterKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use: "clear-openrouter-key",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openStore()
			cfg, presets, _, err := store.Load()
			if err != nil {
				return err
			}
			if cfg.CredentialHandle.IsSet() {
				if err := secretsStore().Clear(cfg.CredentialHandle); err != nil {
					return err
				}
			}
			cfg.CredentialHandle = model.SecretHandle{}
			if err := store.Save(cfg, presets); err != nil {
				return err
			}
			fmt.Println("openrouter credential cleared")
			return nil
		},
	}
}
