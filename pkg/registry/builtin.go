package registry

func docsURL(ns string) string {
	return "https://docs.txtx.sh/addons/" + ns + "/actions"
}

func out(names ...string) []FieldSpec {
	fs := make([]FieldSpec, 0, len(names))
	for _, n := range names {
		fs = append(fs, FieldSpec{Name: n})
	}
	return fs
}

func in(required []string, optional ...string) []FieldSpec {
	fs := make([]FieldSpec, 0, len(required)+len(optional))
	for _, n := range required {
		fs = append(fs, FieldSpec{Name: n})
	}
	for _, n := range optional {
		fs = append(fs, FieldSpec{Name: n, Optional: true})
	}
	return fs
}

// Builtin returns a fresh registry with the standard addons.
func Builtin() *Registry {
	return New(
		Addon{
			Namespace:     "evm",
			Documentation: "Ethereum and EVM-compatible chains",
			DocsURL:       docsURL("evm"),
			Operations: []OperationSpec{
				{
					Matcher:       "send_eth",
					Documentation: "Send ETH to a recipient address.",
					Inputs:        in([]string{"recipient_address", "amount", "signer"}, "rpc_api_url", "chain_id", "confirmations", "nonce", "gas_limit"),
					Outputs:       out("tx_hash"),
				},
				{
					Matcher:       "deploy_contract",
					Documentation: "Deploy a contract from compiled bytecode.",
					Inputs:        in([]string{"contract", "signer"}, "constructor_args", "rpc_api_url", "chain_id", "confirmations", "create2"),
					Outputs:       out("tx_hash", "contract_address", "abi", "logs"),
				},
				{
					Matcher:       "call_contract",
					Documentation: "Call a function on a deployed contract.",
					Inputs:        in([]string{"contract_address", "function_name", "signer"}, "contract_abi", "function_args", "amount", "rpc_api_url", "confirmations"),
					Outputs:       out("tx_hash", "logs", "result"),
				},
				{
					Matcher:       "check_confirmations",
					Documentation: "Wait for a transaction to reach a number of confirmations.",
					Inputs:        in([]string{"tx_hash"}, "rpc_api_url", "chain_id", "confirmations"),
					Outputs:       out("contract_address", "logs"),
				},
				{
					Matcher:       "sign_transaction",
					Documentation: "Sign a transaction without broadcasting it.",
					Inputs:        in([]string{"transaction_payload_bytes", "signer"}, "chain_id"),
					Outputs:       out("signed_transaction_bytes"),
				},
				{
					Matcher:       "broadcast_transaction",
					Documentation: "Broadcast a signed transaction.",
					Inputs:        in([]string{"signed_transaction_bytes"}, "rpc_api_url", "confirmations"),
					Outputs:       out("tx_hash", "logs"),
				},
			},
		},
		Addon{
			Namespace:     "bitcoin",
			Documentation: "Bitcoin scripts and transactions",
			DocsURL:       docsURL("bitcoin"),
			Operations: []OperationSpec{
				{
					Matcher: "sign_transaction",
					Inputs:  in([]string{"transaction", "signer"}),
					Outputs: out("signed_transaction_bytes"),
				},
				{
					Matcher: "broadcast_transaction",
					Inputs:  in([]string{"signed_transaction_bytes"}, "rpc_api_url"),
					Outputs: out("tx_id"),
				},
			},
		},
		Addon{
			Namespace:     "stacks",
			Documentation: "Stacks blockchain",
			DocsURL:       docsURL("stacks"),
			Operations: []OperationSpec{
				{
					Matcher: "deploy_contract",
					Inputs:  in([]string{"contract", "signer"}, "network_id", "rpc_api_url", "confirmations"),
					Outputs: out("tx_id", "contract_id", "value"),
				},
				{
					Matcher: "call_contract",
					Inputs:  in([]string{"contract_id", "function_name", "signer"}, "function_args", "network_id", "rpc_api_url"),
					Outputs: out("tx_id", "value", "result"),
				},
				{
					Matcher: "send_stx",
					Inputs:  in([]string{"recipient", "amount", "signer"}, "network_id", "rpc_api_url"),
					Outputs: out("tx_id"),
				},
				{
					Matcher: "sign_transaction",
					Inputs:  in([]string{"transaction_payload_bytes", "signer"}, "network_id"),
					Outputs: out("signed_transaction_bytes"),
				},
				{
					Matcher: "broadcast_transaction",
					Inputs:  in([]string{"signed_transaction_bytes"}, "network_id", "rpc_api_url"),
					Outputs: out("tx_id", "value", "result"),
				},
			},
		},
		Addon{
			Namespace:     "svm",
			Documentation: "Solana and SVM-compatible chains",
			DocsURL:       docsURL("svm"),
			Operations: []OperationSpec{
				{
					Matcher: "deploy_program",
					Inputs:  in([]string{"program", "authority"}, "payer", "rpc_api_url"),
					Outputs: out("signature", "program_id", "program_idl"),
				},
				{
					Matcher: "process_instructions",
					Inputs:  in([]string{"instruction", "signers"}, "rpc_api_url"),
					Outputs: out("signature"),
				},
				{
					Matcher: "send_sol",
					Inputs:  in([]string{"recipient", "amount", "signer"}, "rpc_api_url"),
					Outputs: out("signature"),
				},
				{
					Matcher: "send_token",
					Inputs:  in([]string{"recipient", "amount", "token", "signer"}, "rpc_api_url"),
					Outputs: out("signature", "recipient_token_address"),
				},
			},
		},
		Addon{
			Namespace:     "ovm",
			Documentation: "Optimism rollups",
			DocsURL:       docsURL("ovm"),
			Operations: []OperationSpec{
				{
					Matcher: "deploy_rollup",
					Inputs:  in([]string{"l1_rpc_api_url", "l2_chain_id"}, "working_dir"),
					Outputs: out("rollup_container_ids"),
				},
			},
		},
		Addon{
			Namespace:     "telegram",
			Documentation: "Telegram notifications",
			DocsURL:       docsURL("telegram"),
			Operations: []OperationSpec{
				{
					Matcher: "send_message",
					Inputs:  in([]string{"telegram_bot_api_token", "telegram_chat_ids", "message"}),
					Outputs: out("message_id"),
				},
			},
		},
		Addon{
			Namespace:     "std",
			Documentation: "Standard library",
			Operations: []OperationSpec{
				{
					Matcher: "send_http_request",
					Inputs:  in([]string{"url"}, "method", "body", "headers", "timeout_ms"),
					Outputs: out("status_code", "response_body"),
				},
				{
					Matcher: "write_file",
					Inputs:  in([]string{"path", "content"}),
					Outputs: out("path"),
				},
			},
		},
	)
}
