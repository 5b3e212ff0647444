package remedy

var advisories = map[string]Advisory{
	"Tomato__Bacterial_spot": {
		Disease: "Bacterial Spot",
		Cause: []string{
			"Xanthomonas bacteria carried on seed and plant debris.",
			"Spread by splashing water, rain and contaminated tools.",
			"Warm temperatures (24-30°C) with high humidity.",
		},
		Symptoms: []string{
			"Small, dark, water-soaked spots on leaves.",
			"Spots turn brown with a yellow halo and may drop out.",
			"Raised, scabby lesions on fruit.",
		},
		Prevention: []string{
			"Use certified disease-free seed and transplants.",
			"Avoid overhead irrigation and working among wet plants.",
			"Rotate crops with non-host plants for 2-3 years.",
		},
		Remedy: []string{
			"Remove and destroy infected leaves.",
			"Apply copper-based bactericides at the first sign of disease.",
			"Disinfect tools and stakes between uses.",
		},
	},
	"Tomato__Early_blight": {
		Disease: "Early Blight",
		Cause: []string{
			"Fungus Alternaria solani surviving in soil and crop residue.",
			"Warm, humid weather and long leaf wetness.",
		},
		Symptoms: []string{
			"Brown spots with concentric rings (target pattern) on older leaves.",
			"Yellowing around lesions, followed by leaf drop.",
			"Dark, sunken lesions on stems and near the fruit stem end.",
		},
		Prevention: []string{
			"Mulch to stop soil splashing onto lower leaves.",
			"Space and stake plants for good air circulation.",
			"Rotate crops and remove plant debris after harvest.",
		},
		Remedy: []string{
			"Prune infected lower leaves.",
			"Apply fungicides containing chlorothalonil or copper.",
			"Keep plants well fed; stressed plants are more susceptible.",
		},
	},
	"Tomato__Late_blight": {
		Disease: "Late Blight",
		Cause: []string{
			"Oomycete Phytophthora infestans.",
			"Cool, wet weather; spores travel long distances on wind.",
		},
		Symptoms: []string{
			"Large, greasy, grey-green patches on leaves.",
			"White fuzzy growth on leaf undersides in humid conditions.",
			"Firm, brown, greasy rot on fruit.",
		},
		Prevention: []string{
			"Plant resistant varieties.",
			"Water at the base of plants in the morning.",
			"Destroy volunteer tomatoes and potato cull piles.",
		},
		Remedy: []string{
			"Remove and bag infected plants immediately; do not compost.",
			"Apply protective fungicides (mancozeb, chlorothalonil) before wet periods.",
		},
	},
	"Tomato__Leaf_Mold": {
		Disease: "Leaf Mold",
		Cause: []string{
			"Fungus Passalora fulva (Cladosporium fulvum).",
			"Relative humidity above 85%, common in greenhouses and tunnels.",
		},
		Symptoms: []string{
			"Pale green to yellow spots on upper leaf surfaces.",
			"Olive-green to brown velvety mould on leaf undersides.",
			"Leaves curl, wither and drop.",
		},
		Prevention: []string{
			"Ventilate greenhouses and reduce humidity.",
			"Avoid wetting foliage when watering.",
			"Use resistant varieties.",
		},
		Remedy: []string{
			"Remove affected leaves.",
			"Apply a suitable fungicide (chlorothalonil, copper) to protect new growth.",
		},
	},
	"Tomato__Septoria_leaf_spot": {
		Disease: "Septoria Leaf Spot",
		Cause: []string{
			"Fungus Septoria lycopersici surviving on plant debris and weeds.",
			"Spread by splashing water in warm, wet weather.",
		},
		Symptoms: []string{
			"Many small circular spots with dark borders and grey centres.",
			"Tiny black specks (fruiting bodies) in the spot centres.",
			"Lower leaves yellow and drop first.",
		},
		Prevention: []string{
			"Mulch and water at soil level.",
			"Control nightshade and other solanaceous weeds.",
			"Rotate crops for at least one year.",
		},
		Remedy: []string{
			"Remove infected leaves as soon as spots appear.",
			"Apply fungicides containing chlorothalonil or copper.",
		},
	},
	"Tomato__Spider_mites_Two_spotted_spider_mite": {
		Disease: "Spider Mites (Two-spotted Spider Mite)",
		Cause: []string{
			"Tetranychus urticae infestation.",
			"Hot, dry, dusty conditions favour rapid build-up.",
		},
		Symptoms: []string{
			"Fine yellow or white stippling on leaves.",
			"Fine webbing on leaf undersides and between leaves.",
			"Leaves bronze, dry out and fall.",
		},
		Prevention: []string{
			"Keep plants well watered and reduce dust.",
			"Encourage predatory mites and other natural enemies.",
			"Inspect leaf undersides regularly.",
		},
		Remedy: []string{
			"Spray plants with a strong stream of water to dislodge mites.",
			"Apply insecticidal soap, neem oil or a registered miticide.",
		},
	},
	"Tomato__Target_Spot": {
		Disease: "Target Spot",
		Cause: []string{
			"Fungus Corynespora cassiicola.",
			"Warm, humid weather and dense canopies.",
		},
		Symptoms: []string{
			"Brown spots with light centres and concentric rings on leaves.",
			"Spots merge, causing leaf blight and drop.",
			"Sunken lesions on fruit.",
		},
		Prevention: []string{
			"Improve air circulation by pruning and staking.",
			"Avoid overhead irrigation.",
			"Remove crop residue after harvest.",
		},
		Remedy: []string{
			"Remove infected foliage.",
			"Apply fungicides such as chlorothalonil or azoxystrobin.",
		},
	},
	"Tomato__Tomato_YellowLeaf__Curl_Virus": {
		Disease: "Tomato Yellow Leaf Curl Virus",
		Cause: []string{
			"Begomovirus transmitted by the silverleaf whitefly (Bemisia tabaci).",
		},
		Symptoms: []string{
			"Upward curling and yellowing of leaf margins.",
			"Small, crumpled leaves and stunted growth.",
			"Flower drop and poor fruit set.",
		},
		Prevention: []string{
			"Use resistant varieties and whitefly-free transplants.",
			"Install insect-proof netting and yellow sticky traps.",
			"Remove weeds that host whiteflies.",
		},
		Remedy: []string{
			"Remove and destroy infected plants; the virus cannot be cured.",
			"Control whiteflies with insecticidal soap, neem oil or registered insecticides.",
		},
	},
	"Tomato_healthy": {
		Disease: "Healthy Plant",
		Cause: []string{
			"No disease detected.",
		},
		Symptoms: []string{
			"Uniform green leaves without spots, curling or mould.",
		},
		Prevention: []string{
			"Keep watering and feeding consistent.",
			"Inspect plants weekly for early signs of pests or disease.",
			"Rotate crops and keep the growing area clean.",
		},
		Remedy: []string{
			"No treatment needed.",
		},
	},
}
