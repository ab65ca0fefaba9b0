package trade

// Pre-parsed order-deck data. Keeping it embedded means the checklist
// works without the game's DT_OrderDecks.json export on disk.
type merchantData struct {
	id          string
	displayName string
	orders      [][2]string
}

var merchantsData = []merchantData{
	{
		id:          "ArnorOrders_Default",
		displayName: "Arnor",
		orders: [][2]string{
			{"CarvedMuralSections_Order_Default", "Carved Mural Sections"},
			{"ElvenLanterns_Order_Default", "Elven Lanterns"},
			{"SilverTableware_Order_Default", "Silver Tableware"},
			{"RoyalSeals_Order_Default", "Royal Seals"},
		},
	},
	{
		id:          "EreborOrders_Default",
		displayName: "Erebor",
		orders: [][2]string{
			{"GoldenGoblets_Order_Default", "Golden Goblets"},
			{"RunedArmorPlates_Order_Default", "Runed Armor Plates"},
			{"GemstoneInlays_Order_Default", "Gemstone Inlays"},
			{"DragonScaleShields_Order_Default", "Dragon Scale Shields"},
			{"AncestralHelms_Order_Default", "Ancestral Helms"},
		},
	},
	{
		id:          "IronHillsOrders_Default",
		displayName: "Iron Hills",
		orders: [][2]string{
			{"IronIngotBundles_Order_Default", "Iron Ingot Bundles"},
			{"WarBoarTack_Order_Default", "War Boar Tack"},
			{"SteelPickaxes_Order_Default", "Steel Picks"},
			{"ChainmailCoils_Order_Default", "Chainmail Coils"},
		},
	},
	{
		id:          "EredLuinOrders_Default",
		displayName: "Ered Luin",
		orders: [][2]string{
			{"BlueCrystalShards_Order_Default", "Blue Crystal Shards"},
			{"TinkersToolsets_Order_Default", "Tinker's Toolsets"},
			{"HearthstoneBlocks_Order_Default", "Hearthstone Blocks"},
		},
	},
	{
		id:          "LothlorienOrders_Default",
		displayName: "Lothlórien",
		orders: [][2]string{
			{"MallornWoodcarvings_Order_Default", "Mallorn Woodcarvings"},
			{"SilverThreadSpools_Order_Default", "Silver Thread Spools"},
			{"MoonstonePendants_Order_Default", "Moonstone Pendants"},
		},
	},
	{
		id:          "DaleOrders_Default",
		displayName: "Dale",
		orders: [][2]string{
			{"SpicedProvisions_Order_Default", "Spiced Provisions"},
			{"ToyMechanisms_Order_Default", "Toy Mechanisms"},
			{"MarketBells_Order_Default", "Market Bells"},
			{"TradeLedgers_Order_Default", "Trade Ledgers"},
		},
	},
}
