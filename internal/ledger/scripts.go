package ledger

import "strings"

const balanceScript = `
import FungibleToken from 0xFUNGIBLE_TOKEN_ADDRESS
import FlowToken from 0xFLOW_TOKEN_ADDRESS

pub fun main(account: Address): UFix64 {

	let vaultRef = getAccount(account)
		.getCapability(/public/flowTokenBalance)
		.borrow<&FlowToken.Vault{FungibleToken.Balance}>()
		?? panic("Could not borrow Balance reference to the Vault")

	return vaultRef.balance
}
`

const transferScript = `
import FungibleToken from 0xFUNGIBLE_TOKEN_ADDRESS
import FlowToken from 0xFLOW_TOKEN_ADDRESS

transaction(amount: UFix64, to: Address) {

	let sentVault: @FungibleToken.Vault

	prepare(signer: AuthAccount) {
		let vaultRef = signer.borrow<&FlowToken.Vault>(from: /storage/flowTokenVault)
			?? panic("Could not borrow reference to the owner's Vault")

		self.sentVault <- vaultRef.withdraw(amount: amount)
	}

	execute {
		let receiverRef = getAccount(to)
			.getCapability(/public/flowTokenReceiver)
			.borrow<&{FungibleToken.Receiver}>()
			?? panic("Could not borrow receiver reference to the recipient's Vault")

		receiverRef.deposit(from: <-self.sentVault)
	}
}
`

func withAddresses(script, flowTokenAddress, fungibleTokenAddress string) []byte {
	addressTemplates := map[string]string{
		"0xFLOW_TOKEN_ADDRESS":     withHexPrefix(flowTokenAddress),
		"0xFUNGIBLE_TOKEN_ADDRESS": withHexPrefix(fungibleTokenAddress),
	}
	for k, v := range addressTemplates {
		script = strings.ReplaceAll(script, k, v)
	}
	return []byte(script)
}

func withHexPrefix(address string) string {
	if strings.HasPrefix(address, "0x") {
		return address
	}
	return "0x" + address
}
