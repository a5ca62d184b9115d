package solana

type Environment string

const (
	EnvironmentDev   Environment = "https://api.devnet.solana.com"
	EnvironmentTest  Environment = "https://api.testnet.solana.com"
	EnvironmentProd  Environment = "https://api.mainnet-beta.solana.com"
	EnvironmentLocal Environment = "http://127.0.0.1:8899"

	// The Magic Router forwards each transaction to the base layer or to the
	// ephemeral rollup validator that holds its writable accounts.
	EnvironmentRouterDev    Environment = "https://devnet-router.magicblock.app"
	EnvironmentEphemeralDev Environment = "https://devnet.magicblock.app"
)

type WebsocketEnvironment string

const (
	WebsocketEnvironmentDev       WebsocketEnvironment = "wss://api.devnet.solana.com"
	WebsocketEnvironmentLocal     WebsocketEnvironment = "ws://127.0.0.1:8900"
	WebsocketEnvironmentRouterDev WebsocketEnvironment = "wss://devnet-router.magicblock.app"
)
