package vision

// Categories are the vendor category tags the model is asked to use.
var Categories = []string{
	"Fruits", "Vegetables", "Dairy", "Meat", "Fish", "Grains",
	"Snacks", "Beverages", "Frozen", "Condiments", "Other",
}

// Units are the unit tags the model is asked to use.
var Units = []string{"Pieces", "Grams", "Kilograms", "Milliliters", "Liters"}

// DetectionPrompt is the fixed instruction sent with every image.
const DetectionPrompt = `Analyze this image and identify all visible food items.

For each food item you can clearly identify, provide:
- name: specific food name (e.g., "whole milk", "chicken breast", "romaine lettuce")
- category: one of these categories ONLY (use exact capitalization):
  - Fruits (apples, bananas, oranges, berries, etc.)
  - Vegetables (lettuce, tomatoes, carrots, onions, etc.)
  - Dairy (milk, cheese, yogurt, butter, eggs, etc.)
  - Meat (beef, pork, chicken, turkey, lamb, etc.)
  - Fish (salmon, tuna, cod, shrimp, seafood, etc.)
  - Grains (pasta, rice, bread, cereals, oats, noodles, flour, etc.)
  - Snacks (chips, cookies, crackers, candy, etc.)
  - Beverages (juice, soda, water, coffee, tea, etc.)
  - Frozen (ice cream, frozen meals, frozen vegetables, etc.)
  - Condiments (ketchup, mustard, mayo, sauces, spices, etc.)
  - Other (anything that doesn't fit above)
- quantity: estimated amount (number only, e.g., 1, 500, 2.5)
- unit: one of these units ONLY (use exact capitalization):
  - Pieces (for countable items: apples, eggs, bottles, cans, packages)
  - Grams (for small weight items: deli meat, cheese slices, small produce)
  - Kilograms (for larger weight items: whole chicken, large bags)
  - Milliliters (for small liquid volumes: cream, small sauce bottles)
  - Liters (for larger liquid volumes: milk cartons, juice bottles)
- quantity_confidence: your confidence in the quantity estimate (0.0 to 1.0)

Quantity detection (in order of priority):
1. VISIBLE ON PACKAGE: If quantity is printed on packaging (e.g., "500g", "1L", "6 eggs"), use that exact value. Set quantity_confidence to 0.95 or higher.
2. COUNTABLE: If you can count individual items (apples, bottles, cans), count them as Pieces. Set confidence based on clarity.
3. ESTIMATE: Only if no visible quantity and not countable, estimate based on typical sizes:
   - Milk carton: 1 Liters | Yogurt cup: 125 Grams | Soda can: 330 Milliliters
   - Cheese block: 200-300 Grams | Deli meat: 150 Grams
   Set quantity_confidence to 0.5-0.7 for estimates.
4. If you cannot determine quantity at all, set quantity, unit, and quantity_confidence to null.

Rules:
- Only include food items you can clearly identify
- Be specific with names (e.g., "cheddar cheese" not just "cheese")
- Use the EXACT category and unit names shown above (capitalized)
- If you cannot determine the category, use "Other"
- Do not include non-food items
- Quantity estimates are suggestions - users will verify

Return a JSON object with this exact structure:
{"items": [{"name": "item name", "category": "Category", "quantity": 2, "unit": "Pieces", "quantity_confidence": 0.9}]}

Example output:
{"items": [
  {"name": "whole milk", "category": "Dairy", "quantity": 1, "unit": "Liters", "quantity_confidence": 0.85},
  {"name": "red apples", "category": "Fruits", "quantity": 4, "unit": "Pieces", "quantity_confidence": 0.95},
  {"name": "cheddar cheese", "category": "Dairy", "quantity": 200, "unit": "Grams", "quantity_confidence": 0.6}
]}

If no food items are visible, return: {"items": []}

Respond ONLY with the JSON object, no markdown or other text.`
